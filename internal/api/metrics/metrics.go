// Package metrics defines all custom Prometheus metrics for the library
// API. It is the single source of truth for metric names, labels, and
// help strings. Metrics register themselves with the default registry
// via promauto at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "library"

// BorrowsTotal counts borrow attempts by outcome.
// Label:
//   - outcome: "success", "out_of_stock", or "error"
var BorrowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "borrows_total",
		Help:      "Total number of borrow attempts, by outcome.",
	},
	[]string{"outcome"},
)

// ReturnsTotal counts return attempts by outcome.
// Label:
//   - outcome: "returned", "overdue", "rejected", or "error"
var ReturnsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "returns_total",
		Help:      "Total number of return attempts, by outcome.",
	},
	[]string{"outcome"},
)

// OrdersTotal counts opened ordering records.
var OrdersTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_total",
		Help:      "Total number of book orders placed.",
	},
)

// FinesAssessedTotal accumulates the fine amounts charged on overdue
// returns, in the catalog's currency unit.
var FinesAssessedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fines_assessed_total",
		Help:      "Cumulative fine amount assessed on overdue returns.",
	},
)

// TransferRowsTotal counts rows moved by bulk transfer.
// Labels:
//   - direction: "export" or "import"
//   - type: "users", "admins", "books", or "borrowers"
var TransferRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfer_rows_total",
		Help:      "Total rows exported or imported via bulk transfer.",
	},
	[]string{"direction", "type"},
)
