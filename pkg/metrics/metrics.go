// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics provides Prometheus metrics for theia. All metrics below
// are registered and exported, but within this module only the retention
// sweep updates one (RetentionPartitionsPrunedTotal); nothing calls
// RecordError or UpdateDiskUsage, so the other series stay at zero.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "theia"

// Component constants for ErrorsTotal label.
const (
	ComponentNaiveStore = "naivestore"
	ComponentRDBS       = "rdbs"
	ComponentTransport  = "transport"
	ComponentLive       = "live"
	ComponentRetention  = "retention"
)

// RecordError increments the errors_total counter for the given component and action.
// action can be empty for single-operation components.
func RecordError(component, action string) {
	ErrorsTotal.WithLabelValues(component, action).Inc()
}

var (
	// EventsIngestedTotal counts events accepted on /event, by backend.
	EventsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ingested_total",
			Help:      "Total number of events accepted for storage, by backend.",
		},
		[]string{"backend"},
	)

	// StoreWriteDurationSeconds measures how long a single Save call takes.
	StoreWriteDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_duration_seconds",
			Help:      "Duration of event store writes in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	// StoreFlushDurationSeconds measures how long a MemoryFile flush takes.
	StoreFlushDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_flush_duration_seconds",
			Help:      "Duration of partition buffer flushes in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SearchDurationSeconds measures how long a Search call takes to
	// exhaust, by backend and order.
	SearchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of completed searches in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "order"},
	)

	// LiveSubscribersGauge reports the current number of registered live filters.
	LiveSubscribersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Number of connections currently subscribed via /live.",
		},
	)

	// LiveEventsForwardedTotal counts events forwarded to live subscribers.
	LiveEventsForwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_events_forwarded_total",
			Help:      "Total number of events forwarded to matching live subscribers.",
		},
	)

	// RetentionPartitionsPrunedTotal counts partitions deleted by the
	// retention sweep.
	RetentionPartitionsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_partitions_pruned_total",
			Help:      "Total number of expired partitions removed by the retention sweep.",
		},
	)

	// DiskUsage defines the current disk used per storage path (unit: GB).
	DiskUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "disk_usage",
			Help:      "Current disk usage per storage path (unit: GB)",
		},
		[]string{"path"},
	)

	// ErrorsTotal counts errors by component and action (for alerting and debugging).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by component and action.",
		},
		[]string{"component", "action"},
	)
)
