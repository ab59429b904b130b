// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package adminapi is the collector's observability/diagnostics HTTP
// surface: Prometheus metrics, a liveness probe, pprof profiles, and a
// /recent endpoint backed by an in-memory ring buffer of ingested
// events.
package adminapi

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theia-log/theia/pkg/logger"
)

// LiveCounter reports how many connections are currently subscribed via
// /live, for the /live/count diagnostic.
type LiveCounter func() int

// Server is the admin/metrics HTTP surface.
type Server struct {
	addr       string
	engine     *gin.Engine
	httpServer *http.Server
	recorder   *Recorder
	listener   net.Listener
}

// NewServer builds a Server listening on addr, serving recent events from
// recorder and the live-subscriber count from liveCount.
func NewServer(addr string, recorder *Recorder, liveCount LiveCounter) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())

	pprof.Register(engine)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	engine.GET("/recent", recentHandler(recorder))
	engine.GET("/live/count", liveCountHandler(liveCount))

	return &Server{
		addr:       addr,
		engine:     engine,
		recorder:   recorder,
		httpServer: &http.Server{Addr: addr, Handler: engine},
	}
}

// Addr returns the address the listener is bound to. Valid only after
// Start has returned successfully.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "binding admin server listener")
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Errorf("adminapi: server stopped serving: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the admin server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutting down admin server")
	}
	return nil
}

func recentHandler(recorder *Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 100
		if q := c.Query("limit"); q != "" {
			if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		c.JSON(http.StatusOK, gin.H{"events": recorder.List(limit)})
	}
}

func liveCountHandler(liveCount LiveCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		count := 0
		if liveCount != nil {
			count = liveCount()
		}
		c.JSON(http.StatusOK, gin.H{"subscribers": count})
	}
}
