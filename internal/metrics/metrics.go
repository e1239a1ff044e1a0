// Package metrics holds the prometheus collectors shared by the bot, the
// scheduler and the upstream proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sleeperbot"

// Outcomes used as label values
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDenied   = "denied"
	OutcomeSkipped  = "skipped"
	StatusTransport = "transport_error"
	StatusRateLimit = "rate_limited"
)

var (
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Slash command invocations by command and outcome.",
	}, []string{"command", "outcome"})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Requests sent to the league API by response status.",
	}, []string{"status"})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Scheduled job runs by job name and outcome.",
	}, []string{"job", "outcome"})

	PlayerCacheLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "player_cache_loads_total",
		Help:      "Player directory loads by source (memory, disk, upstream).",
	}, []string{"source"})
)
