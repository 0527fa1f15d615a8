// Package mail renders and delivers the account emails.
package mail

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	username := cfg.Username
	if username == "" {
		username = cfg.From
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == s.from {
		return errors.New("invalid email address")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	return s.dialer.DialAndSend(m)
}

// LogSender only logs outgoing mail. It is used when mail.enabled is off.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, _ string) error {
	zap.L().Info("Mail delivery disabled, dropping email", zap.String("to", to), zap.String("subject", subject))
	return nil
}
