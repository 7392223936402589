package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics records checkout, webhook and payout activity.
type BillingMetrics struct {
	checkouts     *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	payouts       *prometheus.CounterVec
	stalePending  prometheus.Gauge
}

// NewBillingMetrics registers the billing metrics on the provided registerer.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_checkouts_total",
		Help: "Checkout dispatches by provider and outcome.",
	}, []string{"provider", "outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Provider callback events by provider and result.",
	}, []string{"provider", "result"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_payouts_total",
		Help: "Withdrawal payout dispatches by result.",
	}, []string{"result"})
	stalePending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "billing_stale_pending_transactions",
		Help: "Transactions stuck pending past the reconciliation cutoff.",
	})
	reg.MustRegister(checkouts, webhookEvents, payouts, stalePending)
	return &BillingMetrics{
		checkouts:     checkouts,
		webhookEvents: webhookEvents,
		payouts:       payouts,
		stalePending:  stalePending,
	}
}

// IncCheckout counts one checkout dispatch.
func (b *BillingMetrics) IncCheckout(provider, outcome string) {
	if b == nil || b.checkouts == nil {
		return
	}
	b.checkouts.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent counts one provider callback.
func (b *BillingMetrics) IncWebhookEvent(provider, result string) {
	if b == nil || b.webhookEvents == nil {
		return
	}
	b.webhookEvents.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}

// IncPayout counts one payout dispatch result.
func (b *BillingMetrics) IncPayout(result string) {
	if b == nil || b.payouts == nil {
		return
	}
	b.payouts.WithLabelValues(normalizeLabel(result)).Inc()
}

// SetStalePending records how many transactions are stuck pending.
func (b *BillingMetrics) SetStalePending(count float64) {
	if b == nil || b.stalePending == nil {
		return
	}
	b.stalePending.Set(count)
}
