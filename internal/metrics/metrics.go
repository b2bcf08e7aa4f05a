// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Mutations counts store mutations by operation
	// (add, delete, toggle, edit, profile_create, profile_switch, profile_delete).
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wishkeeper_mutations_total",
		Help: "Number of wishlist store mutations by operation.",
	}, []string{"op"})

	// PersistFailures counts persistence writes that failed. State stays in
	// memory, so a nonzero rate means unsaved user changes.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wishkeeper_persist_failures_total",
		Help: "Number of failed persistence writes.",
	})

	// SyncSnapshots counts snapshot traffic through the sync hub by
	// direction: "in" (applied from a device), "out" (broadcast to devices),
	// "dropped" (suppressed by the echo guard).
	SyncSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wishkeeper_sync_snapshots_total",
		Help: "Number of sync snapshots by direction.",
	}, []string{"direction"})
)
