package email

import (
	"net/smtp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService() (*Service, *[]sentMail) {
	var sent []sentMail
	s := NewService("smtp.local", "1025", "shop@example.com")
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return s, &sent
}

func TestSendOrderConfirmation(t *testing.T) {
	s, sent := newTestService()

	err := s.SendOrderConfirmation(OrderConfirmation{
		To:           "ada@example.com",
		CustomerName: "Ada <script>",
		OrderNumber:  "ORD-250101120000-ABCDEF",
		Items: []OrderItem{
			{ProductID: "p-500", Name: "Desk Lamp", Quantity: 2, Price: decimal.NewFromInt(500)},
			{ProductID: "p-300", Quantity: 1, Price: decimal.NewFromInt(300)},
		},
		Total: decimal.RequireFromString("1391"),
	})

	require.NoError(t, err)
	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.local:1025", mail.addr)
	assert.Equal(t, []string{"ada@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: Order confirmation ORD-250101120000-ABCDEF")
	assert.Contains(t, mail.msg, "Desk Lamp")
	assert.Contains(t, mail.msg, "p-300")
	assert.Contains(t, mail.msg, "1000.00")
	assert.Contains(t, mail.msg, "1391.00")
	assert.NotContains(t, mail.msg, "<script>")
}

func TestSendStatusUpdate(t *testing.T) {
	s, sent := newTestService()
	delivered := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	err := s.SendStatusUpdate(StatusUpdate{
		To:           "ada@example.com",
		CustomerName: "Ada",
		OrderNumber:  "ORD-1",
		Status:       "delivered",
		DeliveryDate: &delivered,
	})

	require.NoError(t, err)
	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0].msg, "Subject: Order ORD-1 is delivered")
	assert.Contains(t, (*sent)[0].msg, "Delivered on 2025-03-04")
}
