// Package config defines the configuration for a LedgerPool.
//
// Regardless of how a LedgerPool is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// options, LedgerPool relies on a data directory, defined by Config.DataDir,
// where it looks for a few additional files:
//
//  ledgerpool.toml // (optional) values for any of the options below.
//  <name>.peers.json // the genesis node list of the pool configuration <name>.
//  db/ // the badger or sqlite database holding pool configurations.
//  priv_key // the private key of a simulated node (cf. ledgerpool keygen).
//  peers.json // the node list reported by a simulated node.
package config
