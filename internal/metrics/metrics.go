// Package metrics exposes the Prometheus counters and gauges the control
// plane emits. None of this is part of spec.md's distilled scope, but it is
// the kind of ambient observability the rest of the retrieval pack carries
// for exactly this kind of executor/agent code (see
// jinterlante1206-AleutianLocal/go.mod's prometheus/client_golang
// dependency); SPEC_FULL.md §4 wires it in rather than dropping it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder groups every metric the control plane emits. A zero-value
// Recorder is unusable; use New or NewWithRegisterer.
type Recorder struct {
	toolCalls       *prometheus.CounterVec
	toolDenials     *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	httpRetries     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	circuitState    *prometheus.GaugeVec
	issueCacheSize  prometheus.Gauge
}

// New registers the control plane's metrics against the default Prometheus
// registerer.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers against a caller-supplied registerer, which
// tests use to avoid colliding with the global default registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turbo_agent",
			Name:      "tool_calls_total",
			Help:      "Tool invocations admitted to a handler, by tool name.",
		}, []string{"tool"}),
		toolDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turbo_agent",
			Name:      "tool_denials_total",
			Help:      "Tool invocations denied by a hook, by tool name and gate.",
		}, []string{"tool", "gate"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turbo_agent",
			Name:      "rate_limited_total",
			Help:      "Tool invocations rejected by the rate limiter, by tool name.",
		}, []string{"tool"}),
		httpRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turbo_agent",
			Name:      "http_retries_total",
			Help:      "Resilient HTTP client retry attempts, by reason.",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turbo_agent",
			Name:      "http_requests_total",
			Help:      "Resilient HTTP client terminal outcomes, by outcome kind.",
		}, []string{"outcome"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "turbo_agent",
			Name:      "circuit_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"client"}),
		issueCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "turbo_agent",
			Name:      "issue_project_cache_size",
			Help:      "Entries in the issue-id to project-id cache.",
		}),
	}
	for _, c := range []prometheus.Collector{
		r.toolCalls, r.toolDenials, r.rateLimited, r.httpRetries,
		r.httpRequests, r.circuitState, r.issueCacheSize,
	} {
		// Re-registering the same collector on the default registerer across
		// multiple Recorders (e.g. in tests) is tolerated, not fatal.
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				_ = are
				continue
			}
		}
	}
	return r
}

// ToolCall records an admitted tool invocation.
func (r *Recorder) ToolCall(tool string) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool).Inc()
}

// ToolDenied records a hook denial for tool, tagged with the gate's name
// (e.g. "rate_limit", "scope", "destructive_shell").
func (r *Recorder) ToolDenied(tool, gate string) {
	if r == nil {
		return
	}
	r.toolDenials.WithLabelValues(tool, gate).Inc()
}

// RateLimited records a rate-limit rejection for tool.
func (r *Recorder) RateLimited(tool string) {
	if r == nil {
		return
	}
	r.rateLimited.WithLabelValues(tool).Inc()
}

// HTTPRetry records a retry attempt, tagged by the reason (status code or
// "connect"/"timeout").
func (r *Recorder) HTTPRetry(reason string) {
	if r == nil {
		return
	}
	r.httpRetries.WithLabelValues(reason).Inc()
}

// HTTPOutcome records a terminal request outcome (e.g. "success",
// "server_error", "circuit_open").
func (r *Recorder) HTTPOutcome(outcome string) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(outcome).Inc()
}

// SetCircuitState publishes the breaker's current state for client.
func (r *Recorder) SetCircuitState(client string, state float64) {
	if r == nil {
		return
	}
	r.circuitState.WithLabelValues(client).Set(state)
}

// SetIssueCacheSize publishes the issue->project cache's current size.
func (r *Recorder) SetIssueCacheSize(n int) {
	if r == nil {
		return
	}
	r.issueCacheSize.Set(float64(n))
}
