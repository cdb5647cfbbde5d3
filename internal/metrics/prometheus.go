package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unboxme_quotes_total",
		Help: "Price quotes served, by tier",
	}, []string{"tier"})

	CheckoutsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unboxme_checkouts_started_total",
		Help: "Checkout sessions created, by tier",
	}, []string{"tier"})

	CheckoutsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unboxme_checkouts_completed_total",
		Help: "Gift boxes persisted after payment, by tier",
	}, []string{"tier"})

	CheckoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unboxme_checkout_failures_total",
		Help: "Checkout failures by stage",
	}, []string{"stage"})

	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unboxme_media_uploads_total",
		Help: "Media uploads by kind and result",
	}, []string{"kind", "result"})

	MediaUploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "unboxme_media_upload_duration_seconds",
		Help:    "Time to store one upload",
		Buckets: prometheus.DefBuckets,
	})

	BoxViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unboxme_box_views_total",
		Help: "Gift box page loads",
	})

	CardRevealChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unboxme_card_reveal_checks_total",
		Help: "Card reveal checks by resulting state",
	}, []string{"state"})

	OrdersAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unboxme_orders_abandoned_total",
		Help: "Pending orders marked abandoned",
	})
)

func label(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func IncQuote(tier string) {
	QuotesTotal.WithLabelValues(label(tier)).Inc()
}

func IncCheckoutStarted(tier string) {
	CheckoutsStarted.WithLabelValues(label(tier)).Inc()
}

func IncCheckoutCompleted(tier string) {
	CheckoutsCompleted.WithLabelValues(label(tier)).Inc()
}

func IncCheckoutFailure(stage string) {
	CheckoutFailures.WithLabelValues(label(stage)).Inc()
}

func IncMediaUpload(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	MediaUploads.WithLabelValues(label(kind), result).Inc()
}

func ObserveMediaUploadDuration(duration time.Duration) {
	MediaUploadDuration.Observe(duration.Seconds())
}

func IncBoxView() {
	BoxViews.Inc()
}

func IncCardRevealCheck(state string) {
	CardRevealChecks.WithLabelValues(label(state)).Inc()
}

func AddOrdersAbandoned(count int64) {
	if count <= 0 {
		return
	}
	OrdersAbandoned.Add(float64(count))
}
