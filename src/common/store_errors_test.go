package common

import (
	"fmt"
	"testing"
)

func TestIsStore(t *testing.T) {
	err := NewStoreErr("PoolConfig", KeyNotFound, "main")

	if !IsStore(err, KeyNotFound) {
		t.Fatalf("%v should be a KeyNotFound StoreErr", err)
	}
	if IsStore(err, KeyAlreadyExists) {
		t.Fatalf("%v should not be a KeyAlreadyExists StoreErr", err)
	}
	if IsStore(fmt.Errorf("other"), KeyNotFound) {
		t.Fatalf("plain errors are not StoreErr")
	}
	if err.Error() != "PoolConfig, main, Not Found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNormalizeHex(t *testing.T) {
	cases := map[string]string{
		"0xabcd": "0XABCD",
		"abcd":   "0XABCD",
		"0XAbCd": "0XABCD",
	}
	for in, want := range cases {
		if got := NormalizeHex(in); got != want {
			t.Fatalf("NormalizeHex(%q) = %q, want %q", in, got, want)
		}
	}

	b, err := DecodeFromString(EncodeToString([]byte{1, 2, 255}))
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 3 || b[2] != 255 {
		t.Fatalf("round trip gave %v", b)
	}
}
