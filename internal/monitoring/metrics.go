package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type LedgerMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	AmountTotal       *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	ConflictRetries   prometheus.Counter
	CacheLookups      *prometheus.CounterVec
}

type SweepMetrics struct {
	RunsTotal    *prometheus.CounterVec
	Duration     prometheus.Histogram
	MarkedTotal  prometheus.Counter
	LastRunEpoch prometheus.Gauge
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_ledger_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "microloan_ledger_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	Ledger = LedgerMetrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_ledger_operations_total",
				Help: "Ledger operations by name and result.",
			},
			[]string{"operation", "result"},
		),
		AmountTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_ledger_amount_total",
				Help: "Sum of money moved by committed ledger operations.",
			},
			[]string{"operation"},
		),
		StatusTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_ledger_status_transitions_total",
				Help: "Loan status changes.",
			},
			[]string{"from", "to"},
		),
		ConflictRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "microloan_ledger_conflict_retries_total",
				Help: "Mutations retried after an optimistic lock conflict.",
			},
		),
		CacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_ledger_balance_cache_lookups_total",
				Help: "Balance cache lookups by result.",
			},
			[]string{"result"},
		),
	}

	Sweep = SweepMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_ledger_sweep_runs_total",
				Help: "Overdue sweep runs by result.",
			},
			[]string{"result"},
		),
		Duration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "microloan_ledger_sweep_duration_seconds",
				Help:    "Overdue sweep duration.",
				Buckets: []float64{.05, .1, .5, 1, 5, 15, 30, 60, 300},
			},
		),
		MarkedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "microloan_ledger_sweep_marked_overdue_total",
				Help: "Loans moved to overdue by the sweep.",
			},
		),
		LastRunEpoch: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "microloan_ledger_sweep_last_run_timestamp_seconds",
				Help: "Unix time the last sweep finished.",
			},
		),
	}
)

func RecordOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	Ledger.OperationsTotal.WithLabelValues(operation, result).Inc()
}

func RecordAmount(operation string, amount float64) {
	if amount > 0 {
		Ledger.AmountTotal.WithLabelValues(operation).Add(amount)
	}
}

func RecordTransition(from, to string) {
	if from != to {
		Ledger.StatusTransitions.WithLabelValues(from, to).Inc()
	}
}

func RecordCacheLookup(hit bool) {
	if hit {
		Ledger.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	Ledger.CacheLookups.WithLabelValues("miss").Inc()
}

func RecordSweep(started time.Time, marked int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	Sweep.RunsTotal.WithLabelValues(result).Inc()
	Sweep.Duration.Observe(time.Since(started).Seconds())
	Sweep.MarkedTotal.Add(float64(marked))
	Sweep.LastRunEpoch.SetToCurrentTime()
}
