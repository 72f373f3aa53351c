// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QRIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_qr_issued_total",
			Help: "Access codes issued",
		},
		[]string{"subject_type"},
	)

	QRIssueRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expo_qr_issue_retries_total",
			Help: "Code candidates discarded because of a duplicate key",
		},
	)

	QRRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_qr_redemptions_total",
			Help: "Redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	AssignmentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_booth_assignment_transitions_total",
			Help: "Booth assignment status changes",
		},
		[]string{"to"},
	)

	LeadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_leads_created_total",
			Help: "Leads submitted",
		},
		[]string{"lead_type"},
	)

	NotificationsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expo_notifications_delivered_total",
			Help: "Notifications pushed to live subscribers",
		},
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expo_notifications_dropped_total",
			Help: "Notifications dropped because a subscriber buffer was full",
		},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_emails_total",
			Help: "Outbound advisor emails by status",
		},
		[]string{"status"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_change_events_published_total",
			Help: "Change events published to the broker",
		},
		[]string{"type", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "expo_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_rate_limited_total",
			Help: "Requests rejected by a rate limit bucket",
		},
		[]string{"scope"},
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "expo_live_subscribers",
			Help: "Connected notification subscribers",
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "expo_goroutines",
			Help: "Current number of goroutines",
		},
	)
)

// CollectRuntime samples runtime gauges every interval until ctx is done.
func CollectRuntime(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		goroutineCount.Set(float64(runtime.NumGoroutine()))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
