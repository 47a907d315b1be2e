package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jobelinc/stocktrack/internal/common"
	"github.com/jobelinc/stocktrack/internal/events"
)

// EmailAlerter sends back-office alert emails for selected topics. Alerts go
// to a configured operations address, not to customers.
type EmailAlerter struct {
	Mail         common.EmailSender
	Enabled      bool
	To           string
	TopicToggles map[string]bool
}

// AlertTopics lists the topics that produce an email out of the box.
func AlertTopics() []string {
	return []string{events.TopicStockLow, events.TopicStockOut, events.TopicOrderStatusChanged}
}

// Notify implements the events.Notifier interface.
func (n EmailAlerter) Notify(_ context.Context, event events.Event) error {
	if !n.Enabled || n.Mail == nil || n.To == "" {
		return nil
	}
	if !n.wants(event.Topic) {
		return nil
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("email alert: decode payload: %w", err)
		}
	}
	return n.Mail.Send(n.To, subjectFor(event.Topic, payload), bodyFor(event.Topic, payload, event.OccurredAt))
}

func (n EmailAlerter) wants(topic string) bool {
	if n.TopicToggles != nil {
		if enabled, ok := n.TopicToggles[topic]; ok {
			return enabled
		}
	}
	for _, t := range AlertTopics() {
		if t == topic {
			return true
		}
	}
	return false
}

func subjectFor(topic string, payload map[string]any) string {
	sku, _ := payload["sku"].(string)
	switch topic {
	case events.TopicStockLow:
		return fmt.Sprintf("Low stock alert: %s", sku)
	case events.TopicStockOut:
		return fmt.Sprintf("Out of stock: %s", sku)
	case events.TopicOrderStatusChanged:
		return "Order status changed"
	case events.TopicPurchaseReceived:
		return "Purchase order received"
	default:
		return fmt.Sprintf("Notification %s", topic)
	}
}

func bodyFor(topic string, payload map[string]any, occurred time.Time) string {
	summary := fmt.Sprintf("Event %s occurred at %s.", topic, occurred.Format(time.RFC3339))
	if sku, ok := payload["sku"].(string); ok && sku != "" {
		summary += fmt.Sprintf("\nSKU: %s", sku)
		if qty, ok := payload["quantity"].(float64); ok {
			summary += fmt.Sprintf("\nQuantity on hand: %d", int(qty))
		}
	}
	if saleID, ok := payload["saleId"].(string); ok && saleID != "" {
		summary += fmt.Sprintf("\nSale: %s", saleID)
	}
	if status, ok := payload["status"].(string); ok && status != "" {
		summary += fmt.Sprintf("\nStatus: %s", status)
	}
	return summary
}
