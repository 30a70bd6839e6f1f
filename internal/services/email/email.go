// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email dispatches magic-link mail via SMTP.
package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/botlink-app/botlink/internal/config"
	"github.com/botlink-app/botlink/internal/i18n"
	"github.com/botlink-app/botlink/internal/models"
)

// Service sends transactional mail. It holds no token or rate-limit
// state; the lifecycle decision is always committed before a send is
// attempted.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// SendMagicLink sends the sign-in mail carrying the token. The link
// embeds the token verbatim.
func (s *Service) SendMagicLink(ctx context.Context, to models.Email, tokenValue, locale string) error {
	signInURL := fmt.Sprintf("%s/auth/verify?token=%s", s.baseURL, url.QueryEscape(tokenValue))

	subject := i18n.T(locale, "magic_link_subject")
	body := i18n.TData(locale, "magic_link_body", map[string]any{
		"SignInURL": signInURL,
	})

	return s.send(ctx, to.String(), subject, body)
}

// send sends an email via SMTP using go-mail. The context carries the
// caller's delivery timeout.
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
