// Package metrics defines and registers all custom Prometheus metrics for the
// user-management API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed on /metrics by the router.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "usermgmt"

// ── Account metrics ───────────────────────────────────────────────────────────

// AccountOperationsTotal counts Account Service calls by outcome.
// Labels:
//   - operation: e.g. "register", "login", "list_users"
//   - status: the envelope status code (e.g. "200", "404", "500")
var AccountOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_operations_total",
		Help:      "Total number of account operations, by operation and envelope status.",
	},
	[]string{"operation", "status"},
)

// LoginThrottledTotal counts login attempts rejected by the throttle.
var LoginThrottledTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_throttled_total",
		Help:      "Total number of login attempts rejected because of too many recent failures.",
	},
)

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokenValidationsTotal counts bearer token checks.
// Label:
//   - result: "valid", "expired", "malformed" or "missing"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of session token validations, by result.",
	},
	[]string{"result"},
)

// ObserveOutcome records one Account Service call.
func ObserveOutcome(operation string, status int) {
	AccountOperationsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}
