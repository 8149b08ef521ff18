// Package metrics holds the process-wide prometheus registry and the
// collectors shared by stores and readers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "anndata"

var (
	Registry = prometheus.NewRegistry()

	// StoreRequests counts store reads by store name and result
	// ("hit", "miss", "error").
	StoreRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Store key reads by result.",
		},
		[]string{"store", "result"},
	)

	// StoreBytes counts bytes returned by store reads.
	StoreBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "read_bytes_total",
			Help:      "Bytes returned by store reads.",
		},
		[]string{"store"},
	)

	// CacheEvents counts caching store lookups ("hit", "miss", "shared").
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Caching store lookups by outcome.",
		},
		[]string{"event"},
	)

	// ElementsResolved counts resolved elements by kind.
	ElementsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "elements_resolved_total",
			Help:      "Elements resolved by kind.",
		},
		[]string{"kind"},
	)

	// SparseFastPath counts sparse reads that needed no indices or data.
	SparseFastPath = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "sparse_empty_blocks_total",
			Help:      "Sparse block reads answered without fetching indices or data.",
		},
	)
)

func init() {
	Registry.MustRegister(
		StoreRequests,
		StoreBytes,
		CacheEvents,
		ElementsResolved,
		SparseFastPath,
	)
}
