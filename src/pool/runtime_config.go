package pool

import (
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/consensus"
	"github.com/mosaicnetworks/ledgerpool/src/store"
)

// RuntimeConfig carries per-Open overrides. Zero values fall back to the
// descriptor's tuning, then to the Manager's Config.
type RuntimeConfig struct {
	Timeout         time.Duration
	ConnLimit       int
	PreorderedNodes []string
}

// Config holds the Manager defaults.
type Config struct {
	// Timeout bounds Open and Refresh when neither the caller's context, the
	// RuntimeConfig nor the descriptor gives one.
	Timeout time.Duration `mapstructure:"timeout"`
	// ConnLimit is the default number of nodes queried in parallel. Zero
	// means no limit.
	ConnLimit int `mapstructure:"conn-limit"`
}

// DefaultConfig ...
func DefaultConfig() *Config {
	return &Config{
		Timeout:   20 * time.Second,
		ConnLimit: 0,
	}
}

// resolve merges rc, the descriptor tuning and the defaults.
func resolve(rc RuntimeConfig, tuning store.Tuning, conf *Config) (time.Duration, consensus.Options) {
	timeout := rc.Timeout
	if timeout <= 0 {
		timeout = tuning.Timeout
	}
	if timeout <= 0 {
		timeout = conf.Timeout
	}

	opts := consensus.Options{
		ConnLimit:       rc.ConnLimit,
		PreorderedNodes: rc.PreorderedNodes,
	}
	if opts.ConnLimit <= 0 {
		opts.ConnLimit = tuning.ConnLimit
	}
	if opts.ConnLimit <= 0 {
		opts.ConnLimit = conf.ConnLimit
	}
	if len(opts.PreorderedNodes) == 0 {
		opts.PreorderedNodes = tuning.PreorderedNodes
	}
	opts.PreorderedNodes = append([]string(nil), opts.PreorderedNodes...)

	return timeout, opts
}
