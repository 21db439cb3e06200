package template

import (
	"bytes"
	"fmt"
	"html/template"

	"dinner-ticketing/internal/config"
	"dinner-ticketing/internal/email"
	"dinner-ticketing/internal/models"
	"dinner-ticketing/internal/tickets/qr"
)

const qrImageName = "ticket-qr.png"

var ticketEmail = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;background:#f5f5f5;">
<div style="font-family:'Helvetica Neue',Arial,sans-serif;max-width:600px;margin:0 auto;background:#ffffff;border-radius:16px;overflow:hidden;border:1px solid #e5e5e5;">
  <div style="background:linear-gradient(135deg,#6A0DAD,#4a0080);padding:40px 30px;text-align:center;">
    <h1 style="color:#ffffff;margin:0;font-size:28px;letter-spacing:2px;">{{.EventName}}</h1>
  </div>
  <div style="padding:30px;">
    {{if .Resent}}<p style="color:#999;font-size:12px;margin:0 0 12px;">This is a copy of your original ticket.</p>{{end}}
    <h2 style="color:#6A0DAD;margin-top:0;">Your Ticket is Confirmed!</h2>
    <div style="text-align:center;margin:20px 0;">
      <img src="cid:{{.QRImage}}" alt="QR code" width="180" height="180" style="border-radius:8px;">
    </div>
    <table style="width:100%;border-collapse:collapse;margin:20px 0;">
      <tr><td style="padding:10px 0;color:#666;">Ticket ID</td><td style="padding:10px 0;text-align:right;font-family:monospace;font-weight:bold;color:#6A0DAD;">{{.TicketID}}</td></tr>
      <tr><td style="padding:10px 0;color:#666;">Name</td><td style="padding:10px 0;text-align:right;font-weight:bold;">{{.FullName}}</td></tr>
      <tr><td style="padding:10px 0;color:#666;">Ticket Type</td><td style="padding:10px 0;text-align:right;text-transform:capitalize;">{{.TicketType}}</td></tr>
      <tr><td style="padding:10px 0;color:#666;">Quantity</td><td style="padding:10px 0;text-align:right;">{{.Quantity}}</td></tr>
      <tr><td style="padding:10px 0;color:#666;">Total Paid</td><td style="padding:10px 0;text-align:right;font-weight:bold;color:#6A0DAD;">KES {{.Total}}</td></tr>
      <tr><td style="padding:10px 0;color:#666;">M-Pesa Ref</td><td style="padding:10px 0;text-align:right;font-family:monospace;">{{.Reference}}</td></tr>
    </table>
    <div style="background:#f8f0ff;border-radius:12px;padding:20px;margin:20px 0;text-align:center;">
      <p style="color:#666;margin:0 0 8px;font-size:13px;">Event Details</p>
      <p style="margin:0;font-weight:bold;color:#333;">{{.DateLine}}</p>
      {{if .MapURL}}<p style="margin:4px 0 0;"><a href="{{.MapURL}}" style="color:#6A0DAD;text-decoration:none;">{{.Venue}}</a></p>{{else}}<p style="margin:4px 0 0;color:#666;">{{.Venue}}</p>{{end}}
    </div>
    <p style="color:#999;font-size:12px;text-align:center;margin-top:20px;">Please present this email or your Ticket ID at the entrance.</p>
  </div>
</div>
</body>
</html>`))

type ticketData struct {
	EventName  string
	DateLine   string
	Venue      string
	MapURL     string
	TicketID   string
	FullName   string
	TicketType string
	Quantity   int
	Total      string
	Reference  string
	QRImage    string
	Resent     bool
}

// Renderer builds the confirmation email for a paid order.
type Renderer struct {
	event config.EventConfig
}

func NewRenderer(event config.EventConfig) *Renderer {
	return &Renderer{event: event}
}

// Render produces the issuance email. resent only adds a short notice line;
// the ticket content is identical.
func (r *Renderer) Render(order *models.Order, resent bool) (email.Message, error) {
	png, err := qr.PNG(order.QRCode, qr.DefaultSize)
	if err != nil {
		return email.Message{}, fmt.Errorf("render qr for %s: %w", order.TicketID, err)
	}

	ref := order.TransactionID
	if ref == "" {
		ref = "N/A"
	}

	var body bytes.Buffer
	err = ticketEmail.Execute(&body, ticketData{
		EventName:  r.event.Name,
		DateLine:   r.event.DateLine,
		Venue:      r.event.Venue,
		MapURL:     r.event.MapURL,
		TicketID:   order.TicketID,
		FullName:   order.FullName,
		TicketType: order.TicketType,
		Quantity:   order.Quantity,
		Total:      formatAmount(order.TotalAmount),
		Reference:  ref,
		QRImage:    qrImageName,
		Resent:     resent,
	})
	if err != nil {
		return email.Message{}, fmt.Errorf("render ticket email: %w", err)
	}

	return email.Message{
		To:      order.Email,
		Subject: fmt.Sprintf("Your Ticket for %s - %s", r.event.Name, order.TicketID),
		HTML:    body.String(),
		Inline:  []email.Inline{{Name: qrImageName, Data: png}},
	}, nil
}

// formatAmount groups thousands: 12000 -> "12,000".
func formatAmount(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
