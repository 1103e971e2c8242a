package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registrations counts register attempts by outcome.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track75_registrations_total",
		Help: "Account registration attempts by outcome.",
	}, []string{"outcome"})

	// Logins counts login attempts by outcome.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track75_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	// Submissions counts attendance writes by source (today, past) and outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track75_attendance_submissions_total",
		Help: "Attendance submissions by source and outcome.",
	}, []string{"source", "outcome"})

	// OverviewRecords observes how many records an overview scanned.
	OverviewRecords = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "track75_overview_records",
		Help:    "Attendance records scanned per overview.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	// AuditProcessed counts audit messages handled by the consumer.
	AuditProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track75_audit_messages_total",
		Help: "Audit queue messages by outcome.",
	}, []string{"outcome"})
)

// Outcome labels.
const (
	OK    = "ok"
	Error = "error"
)
