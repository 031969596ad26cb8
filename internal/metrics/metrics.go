// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deobf_jobs_total",
		Help: "Jobs processed, labelled by terminal status.",
	}, []string{"status"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deobf_job_duration_seconds",
		Help:    "End-to-end duration of delivered jobs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	CreditsSpent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deobf_credits_spent_total",
		Help: "Credits debited for delivered jobs.",
	})
)
