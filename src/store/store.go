package store

import "github.com/mosaicnetworks/ledgerpool/src/common"

const dataType = "PoolConfig"

// Store is the interface of pool configuration backends. Errors are
// common.StoreErr values: KeyAlreadyExists from Create, KeyNotFound from Get
// and Delete, Closed from any call after Close.
type Store interface {
	// Create persists a new descriptor.
	Create(desc *Descriptor) error
	// Get returns a copy of the descriptor stored under name.
	Get(name string) (*Descriptor, error)
	// Delete removes the descriptor stored under name.
	Delete(name string) error
	// List returns the stored names in ascending order.
	List() ([]string, error)
	// Close releases the backend.
	Close() error
}

func notFound(name string) error {
	return common.NewStoreErr(dataType, common.KeyNotFound, name)
}

func alreadyExists(name string) error {
	return common.NewStoreErr(dataType, common.KeyAlreadyExists, name)
}

func closed(name string) error {
	return common.NewStoreErr(dataType, common.Closed, name)
}
