package commands

import (
	"github.com/mosaicnetworks/ledgerpool/src/config"
)

//CLIConfig contains configuration for the LedgerPool commands
type CLIConfig struct {
	LedgerPool config.Config `mapstructure:",squash"`
	Moniker    string        `mapstructure:"moniker"`
	Listen     string        `mapstructure:"listen"`
	Advertise  string        `mapstructure:"advertise"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values. Pool
//configurations are kept in badger so that they survive between commands.
func NewDefaultCLIConfig() *CLIConfig {
	lp := config.NewDefaultConfig()
	lp.Store = config.BadgerStore

	return &CLIConfig{
		LedgerPool: *lp,
		Moniker:    "",
		Listen:     "127.0.0.1:1337",
		Advertise:  "",
	}
}
