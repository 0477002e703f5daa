package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/common"
	"github.com/mosaicnetworks/ledgerpool/src/pool"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultSQLiteFile is the default name of the SQLite database file
	DefaultSQLiteFile = "pools.db"

	// DefaultKeyfile is the default name of the file containing a node's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultPeersFile is the default name of the file listing the nodes that
	// a simulated ledger node reports
	DefaultPeersFile = "peers.json"
)

// Store backends.
const (
	InmemStore  = "inmem"
	BadgerStore = "badger"
	SQLiteStore = "sqlite"
)

// Default configuration values.
const (
	DefaultLogLevel    = "debug"
	DefaultStore       = InmemStore
	DefaultTimeout     = 20 * time.Second
	DefaultTCPTimeout  = 1000 * time.Millisecond
	DefaultConnLimit   = 0
	DefaultMaxPool     = 2
	DefaultServiceAddr = "127.0.0.1:8000"
	DefaultNoService   = true
)

// Config contains all the configuration properties of a LedgerPool.
type Config struct {
	// DataDir is the top-level directory containing configuration, genesis
	// node lists and databases.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, is the path prefix of files receiving a copy of the
	// info and debug logs: <LogFile>_info.log and <LogFile>_debug.log.
	LogFile string `mapstructure:"log-file"`

	// Store selects the backend for pool configurations: inmem, badger or
	// sqlite.
	Store string `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Timeout bounds Open and Refresh when neither the caller nor the pool
	// configuration gives one.
	Timeout time.Duration `mapstructure:"timeout"`

	// TCPTimeout is the timeout of a single status RPC.
	TCPTimeout time.Duration `mapstructure:"tcp-timeout"`

	// ConnLimit is the default number of nodes queried in parallel. Zero means
	// no limit.
	ConnLimit int `mapstructure:"conn-limit"`

	// MaxPool controls how many connections are pooled per node.
	MaxPool int `mapstructure:"max-pool"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// NoService disables the HTTP service.
	NoService bool `mapstructure:"no-service"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		Store:       DefaultStore,
		DatabaseDir: DefaultDatabaseDir(),
		Timeout:     DefaultTimeout,
		TCPTimeout:  DefaultTCPTimeout,
		ConnLimit:   DefaultConnLimit,
		MaxPool:     DefaultMaxPool,
		ServiceAddr: DefaultServiceAddr,
		NoService:   DefaultNoService,
	}

	return config
}

// NewTestConfig returns a config object with default values, an in-memory
// store, and a special logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.DataDir = t.TempDir()
	config.DatabaseDir = filepath.Join(config.DataDir, "db")
	config.Store = InmemStore
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, "db")
	}
}

// BadgerDir returns the directory of the Badger database.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.DatabaseDir, DefaultBadgerFile)
}

// SQLiteFile returns the path of the SQLite database.
func (c *Config) SQLiteFile() string {
	return filepath.Join(c.DatabaseDir, DefaultSQLiteFile)
}

// GenesisFile returns the default path of the node list of the named pool.
func (c *Config) GenesisFile(name string) string {
	return filepath.Join(c.DataDir, name+".peers.json")
}

// Keyfile returns the full path of the file containing a node's private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// PeersFile returns the full path of the node list of a simulated node.
func (c *Config) PeersFile() string {
	return filepath.Join(c.DataDir, DefaultPeersFile)
}

// PoolConfig returns the defaults of the pool session manager.
func (c *Config) PoolConfig() *pool.Config {
	return &pool.Config{
		Timeout:   c.Timeout,
		ConnLimit: c.ConnLimit,
	}
}

// Logger returns a formatted logrus Entry, with prefix set to "ledgerpool".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			c.logger.Hooks.Add(fileHook(c.LogFile))
		}
	}
	return c.logger.WithField("prefix", "ledgerpool")
}

// fileHook copies info and debug entries to files next to prefix.
func fileHook(prefix string) logrus.Hook {
	pathMap := lfshook.PathMap{
		logrus.InfoLevel:  prefix + "_info.log",
		logrus.DebugLevel: prefix + "_debug.log",
	}
	return lfshook.NewHook(pathMap, &logrus.TextFormatter{})
}

// DefaultDatabaseDir returns the default path for database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), "db")
}

// DefaultDataDir return the default directory name for top-level LedgerPool
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".LedgerPool")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "LedgerPool")
		} else {
			return filepath.Join(home, ".ledgerpool")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
