// Package metrics defines the custom Prometheus metrics of the clinic API.
//
// HTTP request metrics come from echoprometheus; the counters here cover the
// authentication flows that plain request counts cannot tell apart.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinic"

// ── Authentication ────────────────────────────────────────────────────────────

// SignInsTotal counts sign-in attempts.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "signins_total",
		Help:      "Total number of sign-in attempts, by result.",
	},
	[]string{"result"},
)

// AccessDeniedTotal counts requests rejected by Protect or Authorize.
// Label:
//   - reason: "no_token", "token_failed", "user_not_found" or "forbidden_role"
var AccessDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "access_denied_total",
		Help:      "Total number of requests rejected by access control, by reason.",
	},
	[]string{"reason"},
)

// ── Password reset ────────────────────────────────────────────────────────────

// ResetRequestsTotal counts forgot-password requests.
// Label:
//   - result: "accepted", "delivery_failed" or "error"
var ResetRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password_reset",
		Name:      "requests_total",
		Help:      "Total number of forgot-password requests, by result.",
	},
	[]string{"result"},
)

// ResetsTotal counts reset-password attempts.
// Label:
//   - result: "success", "invalid_token", "invalid_password" or "error"
var ResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password_reset",
		Name:      "resets_total",
		Help:      "Total number of reset-password attempts, by result.",
	},
	[]string{"result"},
)
