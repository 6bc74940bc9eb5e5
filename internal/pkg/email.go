package pkg

import (
	"crypto/tls"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，可与 Username 相同
}

// SMTPMailer sends HTML mail through one SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: m.cfg.Host}
	return d.DialAndSend(msg)
}

// Invitation is the content of a collaboration invite mail.
type Invitation struct {
	CollectionTitle   string
	InviterName       string
	Code              string
	NeedsRegistration bool
	JoinURL           string
	ValidHours        int
}

func InvitationSubject(inv Invitation) string {
	return fmt.Sprintf("%s invited you to collaborate on \"%s\"", inv.InviterName, inv.CollectionTitle)
}

func InvitationHTML(inv Invitation) string {
	register := ""
	if inv.NeedsRegistration {
		register = `<p>You don't have an account yet. Please register with this email address first, then use the code below.</p>`
	}
	return fmt.Sprintf(`<p>Hello,</p><p><b>%s</b> invited you to collaborate on the collection <b>%s</b>.</p>%s<p>Your invitation code is <b style="font-size:18px;">%s</b>, valid for %d hours.</p><p><a href="%s">Join the collection</a></p>`,
		html.EscapeString(inv.InviterName), html.EscapeString(inv.CollectionTitle), register,
		inv.Code, inv.ValidHours, html.EscapeString(inv.JoinURL))
}
