package email

import (
	"fmt"
	"net/smtp"

	"github.com/dimas1q/quick-estimate/internal/audit"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendStatusNotification notifies the estimate owner that the estimate moved
// to a new status, with the full change list from the audit entry.
func (s *Service) SendStatusNotification(to, estimateName, newStatus string, entry audit.Entry) error {
	subject := fmt.Sprintf("Estimate %q is now %s", estimateName, newStatus)
	body := BuildStatusNotificationBody(estimateName, newStatus, entry)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
