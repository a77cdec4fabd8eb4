package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntakeSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raiserocket_intake_submissions_total",
			Help: "Intake submissions by method and result (saved, draft, rejected, failed)",
		},
		[]string{"method", "result"},
	)

	ScansStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raiserocket_scans_started_total",
			Help: "Scan sequences started",
		},
	)

	ScansFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raiserocket_scans_finished_total",
			Help: "Scan sequences finished, by outcome (complete, cancelled)",
		},
		[]string{"outcome"},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raiserocket_scan_duration_seconds",
			Help:    "Wall time from scan start to report",
			Buckets: []float64{1, 2, 4, 6, 8, 12, 20},
		},
	)

	ActiveScans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raiserocket_scans_active",
			Help: "Scans currently advancing",
		},
	)

	WaitlistJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raiserocket_waitlist_joins_total",
			Help: "Waitlist submissions by result (joined, duplicate, invalid, failed)",
		},
		[]string{"result"},
	)

	UpgradePrompts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raiserocket_upgrade_prompts_total",
			Help: "Upgrade prompt openings by trigger",
		},
		[]string{"trigger"},
	)
)
