// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers run outcomes to operators by email. One run sends
// exactly one message; transport failures surface as coded errors and never
// alter the job outcome already determined.
package notify

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/pkg/errors"
)

// dialTimeout bounds the TCP connect so a black-holed SMTP host cannot hang
// the run past the job outcome.
const dialTimeout = 30 * time.Second

// netDial is swapped out by tests to reach a local fake server.
var netDial = func(network, addr string) (net.Conn, error) {
	return net.DialTimeout(network, addr, dialTimeout)
}

// EmailMessage is one outbound notification.
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
	// HTML marks the body as text/html; job logs and reports arrive as
	// rendered HTML fragments.
	HTML bool
}

// SMTPConfig carries the transport settings for one delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// StartTLS upgrades the connection after EHLO. Port 465 uses implicit
	// TLS instead regardless of this flag.
	StartTLS bool
}

// Mailer sends email over SMTP.
type Mailer struct {
	logger logger.Logger
	config SMTPConfig
}

func NewMailer(l logger.Logger, config SMTPConfig) *Mailer {
	return &Mailer{logger: l, config: config}
}

// Send delivers one message. Authentication is attempted only when a
// username is configured.
func (m *Mailer) Send(msg EmailMessage) error {
	if msg.From == "" || len(msg.To) == 0 {
		return errors.New(errors.MailNoContent, "message needs a sender and at least one recipient")
	}
	if m.config.Host == "" {
		return errors.New(errors.MailDialFailed, "no SMTP host configured")
	}

	addr := net.JoinHostPort(m.config.Host, fmt.Sprintf("%d", m.config.Port))
	m.logger.Debug("Connecting to SMTP server",
		"addr", addr,
		"starttls", m.config.StartTLS,
		"auth", m.config.Username != "")

	client, err := m.connect(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.config.Username != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return errors.Wrap(err, errors.MailAuthFailed).
					WithMetadata("user", m.config.Username)
			}
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return errors.Wrap(err, errors.MailSendFailed).WithMetadata("from", msg.From)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return errors.Wrap(err, errors.MailSendFailed).WithMetadata("rcpt", rcpt)
		}
	}

	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, errors.MailSendFailed)
	}
	if _, err := w.Write(renderMessage(msg)); err != nil {
		w.Close()
		return errors.Wrap(err, errors.MailSendFailed)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.MailSendFailed)
	}

	if err := client.Quit(); err != nil {
		m.logger.Warn("SMTP QUIT failed after accepted delivery", "err", err)
	}

	m.logger.Info("Notification email sent",
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject)
	return nil
}

// connect dials the server and negotiates TLS. Port 465 is implicit TLS;
// any other port starts plain and upgrades via STARTTLS when configured and
// offered.
func (m *Mailer) connect(addr string) (*smtp.Client, error) {
	conn, err := netDial("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.MailDialFailed).WithMetadata("addr", addr)
	}

	if m.config.Port == 465 {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: m.config.Host})
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, errors.MailDialFailed).WithMetadata("addr", addr)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, errors.MailDialFailed).WithMetadata("addr", addr)
	}

	if m.config.Port != 465 && m.config.StartTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
				client.Close()
				return nil, errors.Wrap(err, errors.MailDialFailed).WithMetadata("addr", addr)
			}
		}
	}

	return client, nil
}

// renderMessage serializes headers and body with CRLF line endings.
func renderMessage(msg EmailMessage) []byte {
	contentType := "text/plain; charset=UTF-8"
	if msg.HTML {
		contentType = "text/html; charset=UTF-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
