package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	orderdom "github.com/commercekit/order-intake/internal/order/domain"
	userdom "github.com/commercekit/order-intake/internal/user/domain"
)

type Email struct {
	To      string
	Subject string
	HTML    string
}

// SendFunc matches smtp.SendMail; injectable for tests.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	log  *slog.Logger
	addr string
	from string
	auth smtp.Auth
	send SendFunc
}

func NewMailer(log *slog.Logger, addr, from, username, password string) *Mailer {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &Mailer{
		log:  log,
		addr: addr,
		from: from,
		auth: auth,
		send: smtp.SendMail,
	}
}

// OrderReceived renders the invoice and delivers the confirmation email.
func (m *Mailer) OrderReceived(ctx context.Context, to userdom.User, o orderdom.Order) error {
	html, err := InvoiceHTML(o, to)
	if err != nil {
		return err
	}
	return m.Send(ctx, Email{To: to.Email, Subject: "Order Received", HTML: html})
}

func (m *Mailer) Send(_ context.Context, e Email) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", e.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(e.HTML)

	if err := m.send(m.addr, m.auth, m.from, []string{e.To}, []byte(b.String())); err != nil {
		m.log.Error("smtp send failed", "to", e.To, "err", err)
		return err
	}
	m.log.Info("email sent", "to", e.To, "subject", e.Subject)
	return nil
}
