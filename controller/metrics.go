package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	triggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_triggers_total",
			Help: "Trigger events by admission outcome",
		},
		[]string{"outcome"},
	)
	tokensBilledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_tokens_billed_total",
			Help: "Tokens billed against user allowances",
		},
		[]string{"direction"},
	)
	nanodollarsSpentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_nanodollars_spent_total",
			Help: "Total reconciled cost across all users in nanodollars",
		},
	)
)

const (
	outcomeAccepted      = "accepted"
	outcomeRejected      = "rejected"
	outcomeIgnored       = "ignored"
	outcomeUpstreamError = "upstream_error"
	outcomeError         = "error"
)

func observeExchange(inputTokens, outputTokens uint32, cost int64) {
	triggersTotal.WithLabelValues(outcomeAccepted).Inc()
	tokensBilledTotal.WithLabelValues("input").Add(float64(inputTokens))
	tokensBilledTotal.WithLabelValues("output").Add(float64(outputTokens))
	if cost > 0 {
		nanodollarsSpentTotal.Add(float64(cost))
	}
}
