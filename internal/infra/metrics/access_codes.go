package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(codesIssued, redemptionsTotal, failedAttempts, storageRetries,
		rateLimitBlocks, expiredUnusedCodes, remindersSent)
}

var (
	codesIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_codes_issued_total",
			Help: "Codes issued per payment tier.",
		},
		[]string{"tier"},
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_code_redemptions_total",
			Help: "Redemption attempts by outcome (ok/blocked/expired/used/not_found/unavailable).",
		},
		[]string{"outcome"},
	)

	failedAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_code_failed_attempts_total",
			Help: "Failed-attempt records written as an abuse signal.",
		},
	)

	storageRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_retries_total",
			Help: "Retry-executor retries by error class.",
		},
		[]string{"class"},
	)

	rateLimitBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_blocks_total",
			Help: "Requests rejected by the per-IP rate limiter, per route.",
		},
		[]string{"route"},
	)

	expiredUnusedCodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "access_codes_expired_unused",
			Help: "Codes whose window closed without redemption (sweeper snapshot).",
		},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_reminders_sent_total",
			Help: "Expiry reminders dispatched to the notifier.",
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncCodeIssued(tier string)      { codesIssued.WithLabelValues(norm(tier)).Inc() }
func IncRedemption(outcome string)   { redemptionsTotal.WithLabelValues(norm(outcome)).Inc() }
func IncFailedAttempt()              { failedAttempts.Inc() }
func IncStorageRetry(class string)   { storageRetries.WithLabelValues(norm(class)).Inc() }
func IncRateLimitBlock(route string) { rateLimitBlocks.WithLabelValues(norm(route)).Inc() }
func SetExpiredUnused(n int)         { expiredUnusedCodes.Set(float64(n)) }
func AddRemindersSent(n int)         { remindersSent.Add(float64(n)) }
