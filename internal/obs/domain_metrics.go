package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SaleCommitTotal counts transaction commit outcomes.
	SaleCommitTotal *prometheus.CounterVec
	// SaleCommitAmount observes committed transaction totals.
	SaleCommitAmount prometheus.Histogram
	// StockRejectionTotal counts commits rejected for insufficient stock.
	StockRejectionTotal prometheus.Counter
	// StockSignalTotal counts low-stock and out-of-stock signals by kind.
	StockSignalTotal *prometheus.CounterVec
	// StatusTransitionTotal counts status machine outcomes.
	StatusTransitionTotal *prometheus.CounterVec
	// LedgerReportTotal counts running-balance report computations.
	LedgerReportTotal prometheus.Counter
	// JournalPostTotal counts journal posting outcomes.
	JournalPostTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SaleCommitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_commit_total",
			Help:      "Count of transaction commit outcomes.",
		}, []string{"result"})
		SaleCommitAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_commit_amount",
			Help:      "Committed transaction totals in currency units.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		})
		StockRejectionTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejection_total",
			Help:      "Commits rejected because a line could not be covered.",
		})
		StockSignalTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_signal_total",
			Help:      "Low-stock and out-of-stock signals by kind.",
		}, []string{"kind"})
		StatusTransitionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transition_total",
			Help:      "Status machine transition outcomes.",
		}, []string{"to", "result"})
		LedgerReportTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_report_total",
			Help:      "Number of running-balance reports computed.",
		})
		JournalPostTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_post_total",
			Help:      "Count of journal posting outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, SaleCommitTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleCommitTotal = v
			}
		})
		mustRegisterCollector(reg, SaleCommitAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SaleCommitAmount = v
			}
		})
		mustRegisterCollector(reg, StockRejectionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockRejectionTotal = v
			}
		})
		mustRegisterCollector(reg, StockSignalTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StockSignalTotal = v
			}
		})
		mustRegisterCollector(reg, StatusTransitionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StatusTransitionTotal = v
			}
		})
		mustRegisterCollector(reg, LedgerReportTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				LedgerReportTotal = v
			}
		})
		mustRegisterCollector(reg, JournalPostTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				JournalPostTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
