package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/config"
)

// Email is an outbound plain-text message.
type Email struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Mailer delivers one email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// APIMailer posts emails as JSON to an HTTP mail API.  It makes a single
// attempt per call; the resty client is configured without retries.
type APIMailer struct {
	client *resty.Client
	url    string
	from   string
}

// NewMailer returns an APIMailer when MAIL_API_URL is set, otherwise a
// mailer that only logs what it would have sent.
func NewMailer(cfg config.MailConfig, log *zap.Logger) Mailer {
	if cfg.APIURL == "" {
		return &logMailer{log: log}
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &APIMailer{client: client, url: cfg.APIURL, from: cfg.From}
}

func (m *APIMailer) Send(ctx context.Context, e Email) error {
	if e.From == "" {
		e.From = m.from
	}
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(e).
		Post(m.url)
	if err != nil {
		return fmt.Errorf("mail api: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail api: status %d", resp.StatusCode())
	}
	return nil
}

type logMailer struct {
	log *zap.Logger
}

func (m *logMailer) Send(_ context.Context, e Email) error {
	m.log.Info("mail api not configured, email logged only",
		zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}
