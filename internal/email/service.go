package email

import (
	"fmt"
	"net/smtp"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
	send sendFunc
}

func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
		send: smtp.SendMail,
	}
}

func (s *Service) SendOrderConfirmation(c OrderConfirmation) error {
	body, err := BuildOrderConfirmationBody(c)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	return s.deliver(c.To, fmt.Sprintf("Order confirmation %s", c.OrderNumber), body)
}

func (s *Service) SendStatusUpdate(u StatusUpdate) error {
	body, err := BuildStatusUpdateBody(u)
	if err != nil {
		return fmt.Errorf("render status update: %w", err)
	}
	return s.deliver(u.To, fmt.Sprintf("Order %s is %s", u.OrderNumber, u.Status), body)
}

func (s *Service) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.send(addr, nil, s.from, []string{to}, []byte(msg))
}
