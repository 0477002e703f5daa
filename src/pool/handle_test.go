package pool

import "testing"

func TestHandleTable(t *testing.T) {
	ht := newHandleTable()

	a := &session{name: "a"}
	b := &session{name: "b"}

	ha := ht.allocate(a)
	hb := ht.allocate(b)

	if ha == 0 || hb == 0 || ha == hb {
		t.Fatalf("handles should be distinct and non-zero: %s %s", ha, hb)
	}

	if s, ok := ht.lookup(ha); !ok || s != a {
		t.Fatalf("lookup(%s) should return a", ha)
	}

	if _, ok := ht.lookup(0); ok {
		t.Fatalf("zero handle should never be valid")
	}

	if !ht.release(ha) {
		t.Fatalf("release of a live handle should succeed")
	}
	if ht.release(ha) {
		t.Fatalf("second release should fail")
	}
	if _, ok := ht.lookup(ha); ok {
		t.Fatalf("released handle should not resolve")
	}

	c := &session{name: "c"}
	hc := ht.allocate(c)

	if hc.slot() != ha.slot() {
		t.Fatalf("freed slot should be reused")
	}
	if hc == ha {
		t.Fatalf("reused slot should carry a new generation")
	}
	if _, ok := ht.lookup(ha); ok {
		t.Fatalf("stale handle should not resolve to the new session")
	}
	if s, ok := ht.lookup(hc); !ok || s != c {
		t.Fatalf("lookup(%s) should return c", hc)
	}

	if l := len(ht.live()); l != 2 {
		t.Fatalf("2 sessions should be live, not %d", l)
	}
}

func TestHandleString(t *testing.T) {
	if s := Handle(0).String(); s != "pool#nil" {
		t.Fatalf("got %s", s)
	}
	if s := makeHandle(3, 0).String(); s != "pool#0.3" {
		t.Fatalf("got %s", s)
	}
}
