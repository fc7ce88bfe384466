package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"sync"
	"time"

	"github.com/textjournal/backend/internal/logging"
)

// Recipient is who a confirmation goes to.
type Recipient struct {
	Email       string
	PhoneNumber string
}

// Notifier sends one outbound message.
type Notifier interface {
	SendConfirmation(ctx context.Context, to Recipient) error
}

const confirmationBody = "Welcome to Text Journal! Text your number any time to add a journal entry. Reply STOP to opt out."

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	Insecure bool
}

// SMTPNotifier delivers confirmations by mail. Port 465 uses implicit TLS,
// 587 requires STARTTLS and 25 is plain without auth.
type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) SendConfirmation(ctx context.Context, to Recipient) error {
	if to.Email == "" {
		return fmt.Errorf("recipient has no email address")
	}
	subject := "Your Text Journal is ready"
	body := confirmationBody
	if to.PhoneNumber != "" {
		body += "\r\n\r\nRegistered number: " + to.PhoneNumber
	}
	msg := "MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"To: " + to.Email + "\r\n\r\n" +
		body

	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprintf("%d", n.cfg.Port))
	tlsConfig := &tls.Config{ServerName: n.cfg.Host, InsecureSkipVerify: n.cfg.Insecure}

	var client *smtp.Client
	if n.cfg.Port == 465 {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server with TLS: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, n.cfg.Host)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
	} else {
		conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, n.cfg.Host)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
		if n.cfg.Port == 587 {
			if ok, _ := client.Extension("STARTTLS"); !ok {
				return fmt.Errorf("STARTTLS not supported on port 587")
			}
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}
	defer client.Close()

	if n.cfg.Port != 25 && n.cfg.User != "" && n.cfg.Pass != "" {
		auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Pass, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to.Email); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

// LogNotifier only logs. Used in development.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendConfirmation(ctx context.Context, to Recipient) error {
	n.log.Info(ctx, "confirmation message", "email", to.Email, "phone", to.PhoneNumber, "body", confirmationBody)
	return nil
}

// NotificationDispatcher sends notifications detached from the request.
// Failures are logged and never retried.
type NotificationDispatcher struct {
	notifier Notifier
	log      logging.Logger
	wg       sync.WaitGroup
}

func NewNotificationDispatcher(n Notifier, log logging.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{notifier: n, log: log}
}

func (d *NotificationDispatcher) DispatchConfirmation(ctx context.Context, to Recipient) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.notifier.SendConfirmation(detached, to); err != nil {
			d.log.Warn(detached, "confirmation send failed", "error", err)
		}
	}()
}

// Flush waits for in-flight sends.
func (d *NotificationDispatcher) Flush() {
	d.wg.Wait()
}
