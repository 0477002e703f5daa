// Package pool implements the Pool Session Manager.
//
// The Manager owns every pool session. A session is created by Open against a
// stored pool configuration, kept current by Refresh, and released by Close.
// Each session goes through the states
//
//	Closed -> Opening -> Open -> Refreshing -> Open -> Closing -> Closed
//
// under a per-session lock, so transitions on one handle never interleave,
// while sessions on different pools proceed in parallel. At most one session
// exists per configuration name: a second Open fails with AlreadyOpen, and a
// configuration cannot be deleted while a session holds it.
//
// Handles are generation-checked indices into the Manager's handle table. A
// slot is reused after Close, but with a new generation, so a stale handle
// fails with InvalidHandle.
//
// Every operation is registered in a correlation.Table. The Async variants
// return the correlation.Future at once; the plain variants wait for it. A
// failed Refresh is not fatal: the session stays Open with its last known-good
// view.
package pool
