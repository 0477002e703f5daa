package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	_config = NewDefaultCLIConfig()
)

func init() {
	AddRootFlags(RootCmd)
}

//RootCmd is the root command for LedgerPool
var RootCmd = &cobra.Command{
	Use:               "ledgerpool",
	Short:             "ledger pool manager",
	TraverseChildren:  true,
	PersistentPreRunE: loadConfig,
}

//AddRootFlags adds the flags shared by every command
func AddRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("datadir", _config.LedgerPool.DataDir, "Top-level directory for configuration and data")
	cmd.PersistentFlags().String("log", _config.LedgerPool.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.PersistentFlags().String("log-file", _config.LedgerPool.LogFile, "Also write info and debug logs to <log-file>_info.log and <log-file>_debug.log")

	// Store
	cmd.PersistentFlags().String("store", _config.LedgerPool.Store, "Pool configuration store: inmem, badger or sqlite")
	cmd.PersistentFlags().String("db", _config.LedgerPool.DatabaseDir, "Database directory")

	// Discovery
	cmd.PersistentFlags().DurationP("timeout", "t", _config.LedgerPool.Timeout, "Default deadline of open and refresh")
	cmd.PersistentFlags().Duration("tcp-timeout", _config.LedgerPool.TCPTimeout, "TCP Timeout")
	cmd.PersistentFlags().Int("conn-limit", _config.LedgerPool.ConnLimit, "Nodes queried in parallel (0 for no limit)")
	cmd.PersistentFlags().Int("max-pool", _config.LedgerPool.MaxPool, "Connection pool size max")

	// Service
	cmd.PersistentFlags().StringP("service-listen", "s", _config.LedgerPool.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.PersistentFlags().Bool("no-service", _config.LedgerPool.NoService, "Disable HTTP service")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.LedgerPool.SetDataDir(_config.LedgerPool.DataDir)

	_config.LedgerPool.Logger().WithFields(logrus.Fields{
		"ledgerpool.DataDir":     _config.LedgerPool.DataDir,
		"ledgerpool.LogLevel":    _config.LedgerPool.LogLevel,
		"ledgerpool.Store":       _config.LedgerPool.Store,
		"ledgerpool.DatabaseDir": _config.LedgerPool.DatabaseDir,
		"ledgerpool.Timeout":     _config.LedgerPool.Timeout,
		"ledgerpool.TCPTimeout":  _config.LedgerPool.TCPTimeout,
		"ledgerpool.ConnLimit":   _config.LedgerPool.ConnLimit,
		"ledgerpool.MaxPool":     _config.LedgerPool.MaxPool,
		"ledgerpool.ServiceAddr": _config.LedgerPool.ServiceAddr,
		"ledgerpool.NoService":   _config.LedgerPool.NoService,
	}).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/ledgerpool.toml (.json, .yaml also work)
	viper.SetConfigName("ledgerpool")
	viper.AddConfigPath(_config.LedgerPool.DataDir)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.LedgerPool.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.LedgerPool.Logger().Debugf("No config file found in: %s", _config.LedgerPool.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
