// Package store implements the Pool Configuration Store.
//
// A pool configuration (Descriptor) names a set of ledger nodes and carries
// optional runtime tuning. Descriptors are durable and independent of any open
// session: they are created and deleted explicitly and can be opened many
// times. Three backends implement the Store interface: InmemStore for tests
// and ephemeral processes, BadgerStore and SQLiteStore for persistence.
//
// Stores copy descriptors on the way in and out, so callers never share
// mutable state with the store.
package store
