package events

// Topic constants for domain events emitted by the platform.
const (
	TopicSaleCommitted      = "sale.committed"
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicStockLow           = "stock.low"
	TopicStockOut           = "stock.out"
	TopicPurchaseReceived   = "po.received"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicSaleCommitted,
		TopicOrderCreated,
		TopicOrderStatusChanged,
		TopicStockLow,
		TopicStockOut,
		TopicPurchaseReceived,
	}
}
