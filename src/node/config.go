package node

import (
	"github.com/sirupsen/logrus"
)

// Config contains the configuration of a simulated ledger node.
type Config struct {
	// Moniker is a friendly name for the node, used in logs.
	Moniker string `mapstructure:"moniker"`

	// Logger is the logrus Logger to use.
	Logger *logrus.Entry
}

// DefaultConfig returns a Config with a debug-level logger.
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		Logger: logrus.NewEntry(logger),
	}
}
