package crossref

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/swapdesk/internal/model"
)

func TestExtract_PrefersStructuredData(t *testing.T) {
	n := model.Notification{
		Type:    model.NotificationPaymentReceived,
		Message: "Payment received, ref: T999",
		Data: map[string]any{
			"orderId":   "65f0c0ffee",
			"reference": "PSK_123",
			"amount":    float64(2500),
		},
	}

	l := Extract(n)

	assert.Equal(t, "65f0c0ffee", l.OrderID)
	assert.Equal(t, "PSK_123", l.Reference)
	assert.Equal(t, 2500.0, l.Amount)
	assert.True(t, l.Verifiable())
	assert.False(t, l.Empty())
}

func TestExtract_NestedObjects(t *testing.T) {
	n := model.Notification{
		Type: model.NotificationSwapAccepted,
		Data: map[string]any{
			"swapId":   map[string]any{"_id": "swap-9"},
			"product":  "ignored",
			"deviceId": map[string]any{"id": "dev-2"},
		},
	}

	l := Extract(n)

	assert.Equal(t, "swap-9", l.SwapID)
	assert.Equal(t, "dev-2", l.ProductID)
	assert.False(t, l.Verifiable())
}

func TestExtract_FallsBackToText(t *testing.T) {
	n := model.Notification{
		Type:    model.NotificationOrderConfirmed,
		Title:   "Order confirmed",
		Message: "Your order #A1b2c3 was paid. Reference PSK_8f2a",
	}

	l := Extract(n)

	assert.Equal(t, "A1b2c3", l.OrderID)
	assert.Equal(t, "PSK_8f2a", l.Reference)
}

func TestExtract_IgnoresPlainWords(t *testing.T) {
	n := model.Notification{
		Type:    model.NotificationOrderShipped,
		Message: "Your order has shipped. Reference number will follow.",
	}

	l := Extract(n)

	assert.True(t, l.Empty())
}

func TestExtract_OrderIDOnlyFromOrderText(t *testing.T) {
	n := model.Notification{
		Type:    model.NotificationBidAccepted,
		Message: "Bid accepted for order #B77",
	}

	assert.Empty(t, Extract(n).OrderID)
}

func TestExtractReferences(t *testing.T) {
	refs := ExtractReferences("ref: R1, ref: R2 and again reference R1")
	assert.Equal(t, []string{"R1", "R2"}, refs)

	assert.Nil(t, ExtractReferences("nothing to see"))
}
