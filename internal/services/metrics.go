package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the business counters exported on /metrics. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	BillsPosted         *prometheus.CounterVec
	BilledAmount        prometheus.Counter
	CollectionsRecorded *prometheus.CounterVec
	CollectedAmount     prometheus.Counter
	Reconciliations     prometheus.Counter
	CashDifference      prometheus.Gauge
	DrawerSessions      *prometheus.CounterVec
	SequencesIssued     *prometheus.CounterVec
	StockMovements      *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BillsPosted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "bills_posted_total",
			Help:      "Bills posted, by resulting status.",
		}, []string{"status"}),
		BilledAmount: f.NewCounter(prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "billed_minor_units_total",
			Help:      "Sum of bill totals in minor currency units.",
		}),
		CollectionsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "collections_recorded_total",
			Help:      "Pending-balance collections, by payment method.",
		}, []string{"method"}),
		CollectedAmount: f.NewCounter(prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "collected_minor_units_total",
			Help:      "Sum of pending-balance collections in minor currency units.",
		}),
		Reconciliations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "reconciliations_finalized_total",
			Help:      "Business days finalized.",
		}),
		CashDifference: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "salon",
			Name:      "last_cash_difference_minor_units",
			Help:      "Cash difference of the most recently finalized day.",
		}),
		DrawerSessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "drawer_sessions_total",
			Help:      "Cash drawer transitions, by target status.",
		}, []string{"status"}),
		SequencesIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "sequence_numbers_issued_total",
			Help:      "Invoice and ticket numbers issued, by scope.",
		}, []string{"scope"}),
		StockMovements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "stock_movements_total",
			Help:      "Inventory movements, by kind.",
		}, []string{"kind"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salon",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) billPosted(status string, total int64) {
	if m == nil {
		return
	}
	m.BillsPosted.WithLabelValues(status).Inc()
	m.BilledAmount.Add(float64(total))
}

func (m *Metrics) collectionRecorded(method string, amount int64) {
	if m == nil {
		return
	}
	m.CollectionsRecorded.WithLabelValues(method).Inc()
	m.CollectedAmount.Add(float64(amount))
}

func (m *Metrics) reconciled(difference int64) {
	if m == nil {
		return
	}
	m.Reconciliations.Inc()
	m.CashDifference.Set(float64(difference))
}

func (m *Metrics) drawer(status string) {
	if m == nil {
		return
	}
	m.DrawerSessions.WithLabelValues(status).Inc()
}

func (m *Metrics) sequenceIssued(scope string) {
	if m == nil {
		return
	}
	m.SequencesIssued.WithLabelValues(scope).Inc()
}

func (m *Metrics) stockMoved(kind string, n int) {
	if m == nil {
		return
	}
	m.StockMovements.WithLabelValues(kind).Add(float64(n))
}
