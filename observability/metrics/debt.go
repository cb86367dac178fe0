package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DebtMetrics exposes the debt core's operational counters and gauges.
type DebtMetrics struct {
	issued           *prometheus.CounterVec
	burned           *prometheus.CounterVec
	liquidations     prometheus.Counter
	snapshotDuration prometheus.Histogram
	cachedDebt       prometheus.Gauge
	cacheInvalid     prometheus.Gauge
	cacheStale       prometheus.Gauge
	ledgerLength     prometheus.Gauge
	issuerCount      prometheus.Gauge
}

var (
	debtOnce     sync.Once
	debtRegistry *DebtMetrics
)

// Debt returns the process-wide debt metrics, registering the collectors on
// first use.
func Debt() *DebtMetrics {
	debtOnce.Do(func() {
		debtRegistry = &DebtMetrics{
			issued: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "debt_issued_total",
				Help: "Count of completed issuance operations by currency.",
			}, []string{"currency"}),
			burned: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "debt_burned_total",
				Help: "Count of completed burn operations by currency.",
			}, []string{"currency"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "debt_liquidations_total",
				Help: "Count of completed liquidations.",
			}),
			snapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "debt_snapshot_duration_seconds",
				Help:    "Wall time of full debt cache snapshots.",
				Buckets: prometheus.DefBuckets,
			}),
			cachedDebt: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "debt_cached_total",
				Help: "Cached system debt in whole stablecoin units.",
			}),
			cacheInvalid: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "debt_cache_invalid",
				Help: "Whether the debt cache is currently invalid (1) or trusted (0).",
			}),
			cacheStale: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "debt_cache_stale",
				Help: "Whether the debt cache is older than the stale threshold.",
			}),
			ledgerLength: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "debt_ledger_entries",
				Help: "Number of entries in the debt ledger.",
			}),
			issuerCount: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "debt_open_issuers",
				Help: "Number of accounts with open issuance records.",
			}),
		}
		prometheus.MustRegister(
			debtRegistry.issued,
			debtRegistry.burned,
			debtRegistry.liquidations,
			debtRegistry.snapshotDuration,
			debtRegistry.cachedDebt,
			debtRegistry.cacheInvalid,
			debtRegistry.cacheStale,
			debtRegistry.ledgerLength,
			debtRegistry.issuerCount,
		)
	})
	return debtRegistry
}

// ObserveIssued records a completed issuance.
func (m *DebtMetrics) ObserveIssued(currency string) {
	if m == nil {
		return
	}
	if currency == "" {
		currency = "unknown"
	}
	m.issued.WithLabelValues(currency).Inc()
}

// ObserveBurned records a completed burn.
func (m *DebtMetrics) ObserveBurned(currency string) {
	if m == nil {
		return
	}
	if currency == "" {
		currency = "unknown"
	}
	m.burned.WithLabelValues(currency).Inc()
}

// ObserveLiquidation records a completed liquidation.
func (m *DebtMetrics) ObserveLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// ObserveSnapshot records the duration of a full cache snapshot.
func (m *DebtMetrics) ObserveSnapshot(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.snapshotDuration.Observe(elapsed.Seconds())
}

// SetCacheState publishes the cache's current trust flags and total.
func (m *DebtMetrics) SetCacheState(wholeUnits float64, invalid, stale bool) {
	if m == nil {
		return
	}
	m.cachedDebt.Set(wholeUnits)
	m.cacheInvalid.Set(boolGauge(invalid))
	m.cacheStale.Set(boolGauge(stale))
}

// SetLedgerState publishes the ledger's entry and issuer counts.
func (m *DebtMetrics) SetLedgerState(entries, issuers uint64) {
	if m == nil {
		return
	}
	m.ledgerLength.Set(float64(entries))
	m.issuerCount.Set(float64(issuers))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
