// Package mail delivers action-token links to users. Real SMTP delivery is
// out of scope; LogSender writes the message to the structured log.
package mail

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Sender interface {
	SendVerification(ctx context.Context, to *models.User, token string) error
	SendPasswordReset(ctx context.Context, to *models.User, token string) error
	SendWelcome(ctx context.Context, to *models.User) error
}

// Link builds <frontend>/<path>?token=<token>.
func Link(frontendURL, path, token string) (string, error) {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return "", fmt.Errorf("frontend url: %w", err)
	}
	u = u.JoinPath(path)
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type LogSender struct {
	log         logging.Logger
	frontendURL string
}

func NewLogSender(log logging.Logger, frontendURL string) *LogSender {
	return &LogSender{log: log.With("component", "mail"), frontendURL: frontendURL}
}

func (s *LogSender) SendVerification(ctx context.Context, to *models.User, token string) error {
	link, err := Link(s.frontendURL, "verify", token)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "verification mail", "to", to.Email, "link", link)
	return nil
}

func (s *LogSender) SendPasswordReset(ctx context.Context, to *models.User, token string) error {
	link, err := Link(s.frontendURL, "reset-password", token)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "password reset mail", "to", to.Email, "link", link)
	return nil
}

func (s *LogSender) SendWelcome(ctx context.Context, to *models.User) error {
	s.log.Info(ctx, "welcome mail", "to", to.Email, "name", to.Name)
	return nil
}
