// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package retention implements cron-scheduled pruning of event data older
// than a configured retention window.
package retention

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/theia-log/theia/pkg/logger"
	"github.com/theia-log/theia/pkg/metrics"
)

// Pruner is satisfied by any backend that can evict data older than a
// cutoff. Both pkg/naivestore.NaiveEventStore and
// pkg/rdbs.RelationalEventStore implement it.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff int64) (int, error)
}

// Sweeper runs a cron-scheduled prune of a Pruner's expired data.
type Sweeper struct {
	pruner     Pruner
	retainDays int64
	cronExpr   string
	cronObj    *cron.Cron
}

// NewSweeper builds a Sweeper. An empty cronExpr makes Start a no-op.
func NewSweeper(cronExpr string, retainDays int64, pruner Pruner) *Sweeper {
	return &Sweeper{pruner: pruner, retainDays: retainDays, cronExpr: cronExpr}
}

// Start schedules the sweep and begins its cron runner.
func (s *Sweeper) Start() error {
	if s.cronExpr == "" {
		return nil
	}
	s.cronObj = cron.New()
	_, err := s.cronObj.AddFunc(s.cronExpr, func() {
		if err := s.runSweep(context.Background()); err != nil {
			logger.Errorf("retention: sweep failed: %s", err.Error())
		}
	})
	if err != nil {
		return errors.Wrap(err, "scheduling retention sweep")
	}
	s.cronObj.Start()
	return nil
}

// Stop halts the cron runner, waiting for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cronObj == nil {
		return
	}
	<-s.cronObj.Stop().Done()
}

func (s *Sweeper) runSweep(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(s.retainDays) * 24 * time.Hour).Unix()
	n, err := s.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return errors.Wrap(err, "pruning expired partitions")
	}
	if n > 0 {
		metrics.RetentionPartitionsPrunedTotal.Add(float64(n))
		logger.Infof("retention: pruned %d partitions older than %d days", n, s.retainDays)
	}
	return nil
}
