// Package ledgerpool assembles a pool configuration store, a consensus engine
// and a pool session manager into a single context object, and exposes the
// caller API: create and delete pool configurations, open, refresh and close
// pool sessions.
//
// A LedgerPool is configured with a config.Config and initialised with Init.
// Every operation has a blocking form and an Async form that returns a Future
// whose token correlates the eventual outcome:
//
//  lp := ledgerpool.NewLedgerPool(conf)
//  if err := lp.Init(); err != nil { ... }
//  defer lp.Shutdown()
//
//  h, err := lp.OpenPool(ctx, "main", pool.RuntimeConfig{})
package ledgerpool
