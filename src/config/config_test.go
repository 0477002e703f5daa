package config

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetDataDir(t *testing.T) {
	c := NewDefaultConfig()
	c.SetDataDir("/tmp/lp")

	if c.DatabaseDir != filepath.Join("/tmp/lp", "db") {
		t.Fatalf("default database dir should follow datadir, got %s", c.DatabaseDir)
	}

	c = NewDefaultConfig()
	c.DatabaseDir = "/var/lp"
	c.SetDataDir("/tmp/lp")

	if c.DatabaseDir != "/var/lp" {
		t.Fatalf("explicit database dir should be kept, got %s", c.DatabaseDir)
	}
}

func TestPaths(t *testing.T) {
	c := NewDefaultConfig()
	c.SetDataDir("/tmp/lp")

	if p := c.GenesisFile("main"); p != filepath.Join("/tmp/lp", "main.peers.json") {
		t.Fatalf("GenesisFile: %s", p)
	}
	if p := c.BadgerDir(); p != filepath.Join("/tmp/lp", "db", DefaultBadgerFile) {
		t.Fatalf("BadgerDir: %s", p)
	}
	if p := c.SQLiteFile(); p != filepath.Join("/tmp/lp", "db", DefaultSQLiteFile) {
		t.Fatalf("SQLiteFile: %s", p)
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"garbage": logrus.DebugLevel,
	}
	for s, l := range cases {
		if LogLevel(s) != l {
			t.Fatalf("LogLevel(%s) should be %v, not %v", s, l, LogLevel(s))
		}
	}
}

func TestPoolConfig(t *testing.T) {
	c := NewDefaultConfig()
	c.ConnLimit = 3

	pc := c.PoolConfig()
	if pc.Timeout != DefaultTimeout || pc.ConnLimit != 3 {
		t.Fatalf("unexpected pool config %+v", pc)
	}
}
