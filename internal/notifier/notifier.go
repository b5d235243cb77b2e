// Package notifier delivers outbound user messages. The default
// implementation logs instead of sending so local environments work without
// provider credentials.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
)

// EmailRequest describes one outbound email. Template names are resolved
// against the embedded catalog; Data fills the template placeholders.
type EmailRequest struct {
	To       string
	Subject  string
	Template string
	Body     string
	Data     map[string]any
}

// SMSRequest describes one outbound text message.
type SMSRequest struct {
	To      string
	Message string
}

// Service sends user-facing messages.
type Service interface {
	SendEmail(ctx context.Context, req EmailRequest) error
	SendSMS(ctx context.Context, req SMSRequest) error
}

// LoggerService writes every message to the structured log. It stands in
// for real delivery when no provider is configured.
type LoggerService struct {
	logger  *slog.Logger
	catalog *Catalog
}

// NewLoggerService builds a log-backed notifier.
func NewLoggerService(logger *slog.Logger) *LoggerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggerService{logger: logger, catalog: DefaultCatalog()}
}

// SendEmail renders the template when one is named and logs the result.
func (s *LoggerService) SendEmail(ctx context.Context, req EmailRequest) error {
	if req.To == "" {
		return fmt.Errorf("email recipient required")
	}
	body := req.Body
	subject := req.Subject
	if req.Template != "" && s.catalog != nil {
		rendered, err := s.catalog.Render(req.Template, req.Data)
		if err != nil {
			return err
		}
		body = rendered.Body
		if subject == "" {
			subject = rendered.Subject
		}
	}
	s.logger.InfoContext(ctx, "email notification",
		slog.String("to", req.To),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}

// SendSMS logs the text message.
func (s *LoggerService) SendSMS(ctx context.Context, req SMSRequest) error {
	if req.To == "" {
		return fmt.Errorf("sms recipient required")
	}
	s.logger.InfoContext(ctx, "sms notification",
		slog.String("to", req.To),
		slog.String("message", req.Message),
	)
	return nil
}
