// Package metrics exposes the bridge's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequests counts inbound webhook requests by mode
	// ("enrichment", "tool_calls", "lead_status").
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_webhook_requests_total",
		Help: "Inbound webhook requests handled, by mode.",
	}, []string{"mode"})

	// ToolCallsDispatched counts dispatched tool calls by outcome
	// ("ok", "error", "ignored").
	ToolCallsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_tool_calls_total",
		Help: "Tool calls dispatched, by outcome.",
	}, []string{"outcome"})

	// CRMRequestErrors counts failed CRM API requests by operation.
	CRMRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_crm_request_errors_total",
		Help: "CRM API request failures, by operation.",
	}, []string{"operation"})
)
