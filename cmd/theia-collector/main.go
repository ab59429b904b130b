// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Command theia-collector runs the event collector: the framed ingest/live/
// find transport server, a persistence backend, the retention sweep, and
// the admin/metrics HTTP surface.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/theia-log/theia/pkg/config"
	"github.com/theia-log/theia/pkg/logger"
)

var configFile = flag.String("f", "", "config file path")

func init() {
	flag.Parse()
	if configFile == nil || *configFile == "" {
		panic("config file is required")
	}
}

func main() {
	cfg, err := config.Parse(*configFile, true)
	if err != nil {
		panic(errors.Wrapf(err, "parse config failed"))
	}
	cfgWatcher := config.NewChangeWatcher(*configFile)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		interrupt := make(chan os.Signal, 10)
		signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		for s := range interrupt {
			logger.Infof("received signal %v from system. Exit!", s)
			cancel()
			return
		}
	}()

	svr := NewTheiaServer(ctx, cfg, cfgWatcher)
	if err := svr.Init(); err != nil {
		logger.Fatalf("server init failed: %v", err)
	}
	if err := svr.Run(); err != nil {
		logger.Fatalf("server exit: %s", err.Error())
	}
}
