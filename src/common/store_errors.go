package common

import "fmt"

// StoreErrType enumerates the failure classes of a key/value store.
type StoreErrType uint32

const (
	// KeyNotFound is returned when a lookup or deletion targets a missing key.
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists is returned when a creation targets an existing key.
	KeyAlreadyExists
	// Closed is returned by a store after Close has been called.
	Closed
)

// StoreErr is the error returned by the configuration stores. It records the
// kind of data, the key, and the failure class.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error ...
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Closed:
		m = "Closed"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// Key returns the key the error refers to.
func (e StoreErr) Key() string {
	return e.key
}

// IsStore checks that an error is of type StoreErr and that it's code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
