// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package config

import (
	"context"
	"os"
	"time"

	"github.com/theia-log/theia/pkg/logger"
	"github.com/theia-log/theia/pkg/utils"
)

// pollInterval is how often the watcher checks the config file for
// content changes.
const pollInterval = 10 * time.Second

// Change carries the before/after snapshot of a reloaded config.
type Change struct {
	Prev    *Config `json:"prev"`
	Current *Config `json:"current"`
}

// ChangeWatcher polls a config file for content changes and emits a
// Change on every detected edit.
type ChangeWatcher interface {
	Watch(ctx context.Context) <-chan *Change
}

// NewChangeWatcher builds a ChangeWatcher over cfgPath.
func NewChangeWatcher(cfgPath string) ChangeWatcher {
	return &fileChangeWatcher{cfgPath: cfgPath}
}

type fileChangeWatcher struct {
	cfgPath string
	// pollIntervalOverride, when non-zero, replaces pollInterval. Exists
	// for tests; production callers always get the 10s default.
	pollIntervalOverride time.Duration
}

func (w *fileChangeWatcher) Watch(ctx context.Context) <-chan *Change {
	interval := pollInterval
	if w.pollIntervalOverride > 0 {
		interval = w.pollIntervalOverride
	}
	ch := make(chan *Change)
	go func() {
		ticker := time.NewTicker(interval)
		defer func() {
			ticker.Stop()
			logger.Infof("config change watcher closed")
		}()

		bs, _ := os.ReadFile(w.cfgPath) // nolint
		prevContent := string(bs)
		for {
			select {
			case <-ticker.C:
				bs, _ = os.ReadFile(w.cfgPath)
				currentContent := string(bs)
				if currentContent == prevContent {
					continue
				}
				prevContent = currentContent
				change := w.handleFileChanged()
				if change == nil {
					continue
				}
				logger.Infof("config file '%s' changed", w.cfgPath)
				ch <- change

			case <-ctx.Done():
				close(ch)
				return
			}
		}
	}()
	return ch
}

func (w *fileChangeWatcher) handleFileChanged() *Change {
	if _, err := Parse(w.cfgPath, false); err != nil {
		logger.Errorf("parse config file failed: %s", err.Error())
		return nil
	}
	prevCfg := &Config{}
	currentCfg := &Config{}
	_ = utils.DeepCopyStruct(prev, prevCfg)
	_ = utils.DeepCopyStruct(singleton, currentCfg)
	return &Change{Prev: prevCfg, Current: currentCfg}
}
