// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package config parses and hot-reloads the collector's JSON config file
// (§10.3): host/port, storage backend selection, flush interval, log
// settings, and retention policy.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/theia-log/theia/pkg/logger"
	"github.com/theia-log/theia/pkg/utils"
)

// Backend selects which storeapi.EventStore implementation the collector
// constructs.
type Backend string

const (
	BackendNaive Backend = "naive"
	BackendRDBS  Backend = "rdbs"
)

// Config is the collector's full runtime configuration.
type Config struct {
	// Address is the host:port the framed transport server binds.
	Address string `json:"address"`
	// AdminAddress is the host:port the admin/metrics HTTP server binds.
	AdminAddress string `json:"adminAddress"`

	// Backend selects the persistence backend.
	Backend Backend `json:"backend"`
	// DataDir is the naive store's partition root (BackendNaive).
	DataDir string `json:"dataDir"`
	// DBPath is the SQLite file path (BackendRDBS).
	DBPath string `json:"dbPath"`
	// FlushIntervalMS is the naive store's periodic flush interval, in
	// milliseconds. 0 selects synchronous (flush-on-save) mode.
	FlushIntervalMS int64 `json:"flushIntervalMs"`

	// Verbose sets the logger's V-level verbosity gate.
	Verbose int `json:"verbose"`

	LogConfig       LogConfig       `json:"logConfig"`
	RetentionConfig RetentionConfig `json:"retentionConfig"`
}

// LogConfig configures the rotated log file (§10.1).
type LogConfig struct {
	LogDir        string `json:"logDir"`
	LogMaxSize    int    `json:"logMaxSize"`
	LogMaxBackups int    `json:"logMaxBackups"`
	LogMaxAge     int    `json:"logMaxAge"`
}

// RetentionConfig configures the cron-scheduled partition pruning sweep.
type RetentionConfig struct {
	// Cron is a standard 5-field cron expression; empty disables retention.
	Cron string `json:"cron"`
	// RetainDays is how many days of partitions to keep.
	RetainDays int64 `json:"retainDays"`
}

var (
	prev      = new(Config)
	singleton = new(Config)
)

// Global returns the current, most-recently-parsed configuration.
func Global() *Config {
	return singleton
}

const (
	defaultLogDir         = "/data/theia/logs"
	defaultLogMaxSizeMB   = 100
	defaultLogMaxBackups  = 10
	defaultLogMaxAgeDays  = 30
	defaultRetentionFloor = 0
)

// Parse reads configFile, validates it, and (on init) initializes the
// logger. Subsequent non-init calls (from the change watcher) reconfigure
// the logger only if its settings changed.
func Parse(configFile string, init bool) (*Config, error) {
	bs, err := os.ReadFile(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read config '%s' failed", configFile)
	}
	cfg := new(Config)
	if err := json.Unmarshal(bs, cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config failed")
	}

	if err := cfg.checkLogConfig(); err != nil {
		return nil, errors.Wrap(err, "check log config failed")
	}
	if err := cfg.checkStoreConfig(); err != nil {
		return nil, errors.Wrap(err, "check store config failed")
	}
	if err := cfg.checkRetentionConfig(); err != nil {
		return nil, errors.Wrap(err, "check retention config failed")
	}

	if init {
		logger.InitLogger(&logger.Option{
			Filename:   cfg.LogConfig.LogDir + "/theia-collector.log",
			MaxSize:    cfg.LogConfig.LogMaxSize,
			MaxAge:     cfg.LogConfig.LogMaxAge,
			MaxBackups: cfg.LogConfig.LogMaxBackups,
			Level:      cfg.Verbose,
		})
	}
	changeConfig(cfg, init)
	return cfg, nil
}

func changeConfig(cfg *Config, init bool) {
	if init {
		_ = utils.DeepCopyStruct(cfg, singleton)
		_ = utils.DeepCopyStruct(cfg, prev)
	} else {
		_ = utils.DeepCopyStruct(singleton, prev)
		_ = utils.DeepCopyStruct(cfg, singleton)
		if prev.LogConfig != singleton.LogConfig || prev.Verbose != singleton.Verbose {
			logger.InitLogger(&logger.Option{
				Filename:   cfg.LogConfig.LogDir + "/theia-collector.log",
				MaxSize:    cfg.LogConfig.LogMaxSize,
				MaxAge:     cfg.LogConfig.LogMaxAge,
				MaxBackups: cfg.LogConfig.LogMaxBackups,
				Level:      cfg.Verbose,
			})
		}
	}
	logger.Infof("parsed config: %s", string(utils.ToJson(cfg)))
}

func (c *Config) checkLogConfig() error {
	if c.LogConfig.LogDir == "" {
		c.LogConfig.LogDir = defaultLogDir
	}
	if err := os.MkdirAll(c.LogConfig.LogDir, 0755); err != nil {
		return errors.Wrapf(err, "create log dir '%s' failed", c.LogConfig.LogDir)
	}
	if c.LogConfig.LogMaxSize <= 0 {
		c.LogConfig.LogMaxSize = defaultLogMaxSizeMB
	}
	if c.LogConfig.LogMaxBackups <= 0 {
		c.LogConfig.LogMaxBackups = defaultLogMaxBackups
	}
	if c.LogConfig.LogMaxAge <= 0 {
		c.LogConfig.LogMaxAge = defaultLogMaxAgeDays
	}
	return nil
}

func (c *Config) checkStoreConfig() error {
	if c.Backend == "" {
		c.Backend = BackendNaive
	}
	switch c.Backend {
	case BackendNaive:
		if c.DataDir == "" {
			return errors.New("dataDir is required for the naive backend")
		}
		if err := os.MkdirAll(c.DataDir, 0755); err != nil {
			return errors.Wrapf(err, "create data dir '%s' failed", c.DataDir)
		}
	case BackendRDBS:
		if c.DBPath == "" {
			return errors.New("dbPath is required for the rdbs backend")
		}
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

func (c *Config) checkRetentionConfig() error {
	if c.RetentionConfig.Cron == "" {
		logger.Infof("retention config not set, no-need auto prune")
		return nil
	}
	if c.RetentionConfig.RetainDays < defaultRetentionFloor {
		c.RetentionConfig.RetainDays = defaultRetentionFloor
	}
	return ParseCron(c.RetentionConfig.Cron)
}

// ParseCron validates expr and logs its next ten fire times, for
// operators to sanity-check a schedule before committing it.
func ParseCron(expr string) error {
	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return errors.Wrapf(err, "parse cron expression '%s' failed", expr)
	}
	logger.Infof("parsed retention cron '%s', next fire times:", expr)
	current := time.Now()
	for i := 0; i < 10; i++ {
		current = schedule.Next(current)
		logger.Infof("  [%d] %s", i, current.Format("2006-01-02 15:04:05"))
	}
	return nil
}
