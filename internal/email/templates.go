package email

import (
	"bytes"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.Decimal
}

func (i OrderItem) DisplayName() string {
	if i.Name == "" {
		return i.ProductID
	}
	return i.Name
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderConfirmation is the content of the mail sent when an order is placed.
type OrderConfirmation struct {
	To             string
	CustomerName   string
	OrderNumber    string
	TrackingNumber string
	Items          []OrderItem
	Total          decimal.Decimal
}

// StatusUpdate is the content of the mail sent when fulfilment moves on.
type StatusUpdate struct {
	To             string
	CustomerName   string
	OrderNumber    string
	TrackingNumber string
	Status         string
	DeliveryDate   *time.Time
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 24px;">Thank you for your order</h1>
	<p>Hi {{.CustomerName}}, we have received your order.</p>
	<p>Order number: <strong style="font-family: monospace;">{{.OrderNumber}}</strong><br>
	Tracking number: <span style="font-family: monospace;">{{.TrackingNumber}}</span></p>
	<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
		<thead>
			<tr style="background: #f8f9fa;">
				<th style="padding: 12px; text-align: left;">Item</th>
				<th style="padding: 12px; text-align: center;">Qty</th>
				<th style="padding: 12px; text-align: right;">Price</th>
				<th style="padding: 12px; text-align: right;">Subtotal</th>
			</tr>
		</thead>
		<tbody>
		{{- range .Items}}
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">{{.DisplayName}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{money .Price}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{money .LineTotal}}</td>
			</tr>
		{{- end}}
		</tbody>
	</table>
	<p style="text-align: right; font-size: 20px;">Total <strong>{{money .Total}}</strong></p>
	<p style="font-size: 12px; color: #999;">This message was sent automatically. Please do not reply.</p>
</body>
</html>
`))

var statusTmpl = template.Must(template.New("status").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 24px;">Your order is {{.Status}}</h1>
	<p>Hi {{.CustomerName}}, order <strong style="font-family: monospace;">{{.OrderNumber}}</strong> is now {{.Status}}.</p>
	{{- if .DeliveryDate}}
	<p>Delivered on {{date .DeliveryDate}}.</p>
	{{- end}}
	<p>Tracking number: <span style="font-family: monospace;">{{.TrackingNumber}}</span></p>
	<p style="font-size: 12px; color: #999;">This message was sent automatically. Please do not reply.</p>
</body>
</html>
`))

func BuildOrderConfirmationBody(c OrderConfirmation) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func BuildStatusUpdateBody(u StatusUpdate) (string, error) {
	var buf bytes.Buffer
	if err := statusTmpl.Execute(&buf, u); err != nil {
		return "", err
	}
	return buf.String(), nil
}
