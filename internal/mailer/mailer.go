// Package mailer renders transactional notices and hands them to a mail
// transport off the request path. Delivery failures are logged, never returned.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	ErrInvalidEmail  = errors.New("mailer: invalid email")
	ErrInvalidConfig = errors.New("mailer: invalid config")
	ErrSendFailed    = errors.New("mailer: send failed")
	ErrUnknownKind   = errors.New("mailer: unknown notification kind")
)

// Email is a fully rendered message ready for a transport.
type Email struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// Validate checks the fields every transport relies on.
func (e Email) Validate() error {
	if strings.TrimSpace(e.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidEmail)
	}
	if _, err := mail.ParseAddress(e.To); err != nil {
		return fmt.Errorf("%w: recipient %q is not a valid address", ErrInvalidEmail, e.To)
	}
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidEmail)
	}
	if strings.TrimSpace(e.TextBody) == "" && strings.TrimSpace(e.HTMLBody) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidEmail)
	}
	return nil
}

// Sender delivers a rendered email through some transport.
type Sender interface {
	SendEmail(ctx context.Context, email Email) error
}
