package template

import (
	"testing"

	"dinner-ticketing/internal/config"
	"dinner-ticketing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidOrder() *models.Order {
	return &models.Order{
		ID:            "order-1",
		TicketID:      "3F2A9C1B",
		QRCode:        "7b0d6f2e-5a1c-4d3e-9f80-1a2b3c4d5e6f",
		FullName:      "Jane <b>Doe</b>",
		Email:         "jane@x.com",
		TicketType:    "single",
		Quantity:      2,
		TotalAmount:   12000,
		PaymentStatus: models.PaymentPaid,
		TransactionID: "SGR7XYZ",
	}
}

func TestRenderTicketEmail(t *testing.T) {
	r := NewRenderer(config.EventConfig{Name: "Womens Day Dinner", DateLine: "March 7", Venue: "Radisson Blu"})

	msg, err := r.Render(paidOrder(), false)
	require.NoError(t, err)

	assert.Equal(t, "jane@x.com", msg.To)
	assert.Equal(t, "Your Ticket for Womens Day Dinner - 3F2A9C1B", msg.Subject)
	assert.Contains(t, msg.HTML, "3F2A9C1B")
	assert.Contains(t, msg.HTML, "KES 12,000")
	assert.Contains(t, msg.HTML, "SGR7XYZ")
	assert.Contains(t, msg.HTML, "cid:ticket-qr.png")
	assert.Contains(t, msg.HTML, "Jane &lt;b&gt;Doe&lt;/b&gt;")
	assert.NotContains(t, msg.HTML, "copy of your original ticket")
	require.Len(t, msg.Inline, 1)
	assert.NotEmpty(t, msg.Inline[0].Data)
}

func TestRenderResentNotice(t *testing.T) {
	r := NewRenderer(config.EventConfig{Name: "Dinner"})
	o := paidOrder()
	o.TransactionID = ""

	msg, err := r.Render(o, true)
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "copy of your original ticket")
	assert.Contains(t, msg.HTML, "N/A")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", formatAmount(0))
	assert.Equal(t, "600", formatAmount(600))
	assert.Equal(t, "6,000", formatAmount(6000))
	assert.Equal(t, "60,000", formatAmount(60000))
	assert.Equal(t, "1,234,567", formatAmount(1234567))
	assert.Equal(t, "-6,000", formatAmount(-6000))
}
