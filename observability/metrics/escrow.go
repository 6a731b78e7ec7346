package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EscrowMetrics tracks listing and settlement activity for the service.
type EscrowMetrics struct {
	itemsListed      prometheus.Counter
	itemsPurchased   prometheus.Counter
	purchaseFailures *prometheus.CounterVec
	feeVolume        prometheus.Counter
}

var (
	escrowOnce     sync.Once
	escrowRegistry *EscrowMetrics
)

// Escrow returns the process-wide escrow metrics, registering the collectors
// on first use.
func Escrow() *EscrowMetrics {
	escrowOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			itemsListed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "escrow_items_listed_total",
				Help: "Count of successfully listed items.",
			}),
			itemsPurchased: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "escrow_items_purchased_total",
				Help: "Count of settled purchases.",
			}),
			purchaseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_purchase_failures_total",
				Help: "Count of rejected purchases by reason.",
			}, []string{"reason"}),
			feeVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "escrow_fee_volume_base_units_total",
				Help: "Cumulative platform fees collected, in token base units.",
			}),
		}
		prometheus.MustRegister(
			escrowRegistry.itemsListed,
			escrowRegistry.itemsPurchased,
			escrowRegistry.purchaseFailures,
			escrowRegistry.feeVolume,
		)
	})
	return escrowRegistry
}

// ItemListed records a successful listing.
func (m *EscrowMetrics) ItemListed() {
	if m == nil {
		return
	}
	m.itemsListed.Inc()
}

// ItemPurchased records a settled purchase and the collected fee.
func (m *EscrowMetrics) ItemPurchased(fee *big.Int) {
	if m == nil {
		return
	}
	m.itemsPurchased.Inc()
	if fee != nil {
		value, _ := new(big.Float).SetInt(fee).Float64()
		m.feeVolume.Add(value)
	}
}

// PurchaseFailed records a rejected purchase with its reason label.
func (m *EscrowMetrics) PurchaseFailed(reason string) {
	if m == nil {
		return
	}
	m.purchaseFailures.WithLabelValues(reason).Inc()
}
