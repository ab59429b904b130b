// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/theia-log/theia/pkg/adminapi"
	"github.com/theia-log/theia/pkg/collector"
	"github.com/theia-log/theia/pkg/config"
	"github.com/theia-log/theia/pkg/logger"
	"github.com/theia-log/theia/pkg/naivestore"
	"github.com/theia-log/theia/pkg/rdbs"
	"github.com/theia-log/theia/pkg/retention"
	"github.com/theia-log/theia/pkg/storeapi"
)

// TheiaServer wires a persistence backend, the ingest/live/find collector,
// the retention sweep, and the admin/metrics HTTP surface into a single
// process, and owns their combined lifecycle.
type TheiaServer struct {
	cfg        *config.Config
	cfgWatcher config.ChangeWatcher

	globalCtx    context.Context
	globalCancel context.CancelFunc

	store     storeapi.EventStore
	collector *collector.Collector
	admin     *adminapi.Server
	sweeper   *retention.Sweeper
	recorder  *adminapi.Recorder
}

// NewTheiaServer builds a TheiaServer. Init must be called before Run.
func NewTheiaServer(globalCtx context.Context, cfg *config.Config, cfgWatcher config.ChangeWatcher) *TheiaServer {
	ctx, cancel := context.WithCancel(globalCtx)
	return &TheiaServer{
		cfg:          cfg,
		cfgWatcher:   cfgWatcher,
		globalCtx:    ctx,
		globalCancel: cancel,
	}
}

// Init constructs the backend, collector, retention sweep, and admin
// server, and wires them together.
func (s *TheiaServer) Init() error {
	store, err := newStore(s.cfg)
	if err != nil {
		return errors.Wrap(err, "constructing event store")
	}
	s.store = store

	s.collector = collector.New(s.cfg.Address, store)
	s.recorder = adminapi.NewRecorder(adminapi.DefaultRecentBufferSize)
	s.collector.OnIngested(s.recorder.Record)

	s.admin = adminapi.NewServer(s.cfg.AdminAddress, s.recorder, func() int {
		return s.collector.Matcher().Count()
	})

	if pruner, ok := store.(retention.Pruner); ok {
		s.sweeper = retention.NewSweeper(s.cfg.RetentionConfig.Cron, s.cfg.RetentionConfig.RetainDays, pruner)
	} else {
		logger.Warnf("store backend does not support retention pruning, skipping sweep")
	}
	return nil
}

func newStore(cfg *config.Config) (storeapi.EventStore, error) {
	switch cfg.Backend {
	case config.BackendRDBS:
		return rdbs.New(cfg.DBPath)
	default:
		flushInterval := time.Duration(cfg.FlushIntervalMS) * time.Millisecond
		return naivestore.New(cfg.DataDir, flushInterval)
	}
}

// Run starts every component and blocks until the global context is
// cancelled or a component exits with an error.
func (s *TheiaServer) Run() error {
	fs := []func(errCh chan error){s.runCollector, s.runAdmin, s.runConfigWatcher}
	errCh := make(chan error, len(fs))
	for i := range fs {
		go fs[i](errCh)
	}

	if s.sweeper != nil {
		if err := s.sweeper.Start(); err != nil {
			return errors.Wrap(err, "starting retention sweep")
		}
	}

	go func() {
		<-s.globalCtx.Done()
		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		if err := s.collector.Stop(); err != nil {
			logger.Warnf("collector stop: %v", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.admin.Stop(shutdownCtx); err != nil {
			logger.Warnf("admin server stop: %v", err)
		}
	}()

	for i := 0; i < len(fs); i++ {
		if err := <-errCh; err != nil {
			return errors.Wrap(err, "run server failed")
		}
	}
	return nil
}

func (s *TheiaServer) runCollector(errCh chan error) {
	defer logger.Warnf("collector exit")
	if err := s.collector.Run(); err != nil {
		errCh <- errors.Wrap(err, "run collector failed")
		return
	}
	<-s.globalCtx.Done()
	errCh <- nil
}

func (s *TheiaServer) runAdmin(errCh chan error) {
	defer logger.Warnf("admin server exit")
	if err := s.admin.Start(); err != nil {
		errCh <- errors.Wrap(err, "start admin server failed")
		return
	}
	<-s.globalCtx.Done()
	errCh <- nil
}

func (s *TheiaServer) runConfigWatcher(errCh chan error) {
	defer logger.Warnf("config watcher exit")
	ch := s.cfgWatcher.Watch(s.globalCtx)
	logger.Infof("config watcher started")
	for change := range ch {
		logger.Infof("config change detected, current backend=%s", change.Current.Backend)
	}
	errCh <- nil
}
