package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xcellar/xcellar/internal/n8n"
	"github.com/xcellar/xcellar/internal/repository"
)

// HelpRequestInput is a support ticket submission. UserID is nil for
// anonymous callers.
type HelpRequestInput struct {
	UserID      *int64
	Name        string
	Email       string
	PhoneNumber string
	Subject     string
	Message     string
	Category    string
	Priority    string
}

// HelpWorkflowClient is the slice of the n8n client the help desk uses.
type HelpWorkflowClient interface {
	Enabled() bool
	SendHelpRequest(ctx context.Context, event n8n.HelpRequestEvent) error
}

// HelpDeskService records support tickets and hands them to the workflow
// engine.
type HelpDeskService interface {
	Submit(ctx context.Context, input HelpRequestInput) (*repository.HelpRequest, error)
	MyRequests(ctx context.Context, userID int64, limit, offset int) ([]*repository.HelpRequest, int64, error)
}

type helpDeskService struct {
	requests repository.HelpRequestRepository
	workflow HelpWorkflowClient
	logger   *slog.Logger
}

// NewHelpDeskService assembles the help desk flows.
func NewHelpDeskService(requests repository.HelpRequestRepository, workflow HelpWorkflowClient, logger *slog.Logger) HelpDeskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &helpDeskService{requests: requests, workflow: workflow, logger: logger}
}

func (s *helpDeskService) Submit(ctx context.Context, input HelpRequestInput) (*repository.HelpRequest, error) {
	email := normalizeEmail(input.Email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	message := sanitizeText(input.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	subject := sanitizeText(input.Subject)
	if subject == "" {
		subject = "Help request"
	}

	request := &repository.HelpRequest{
		UserID:    input.UserID,
		UserEmail: email,
		Subject:   subject,
		Message:   message,
		Category:  sanitizeText(input.Category),
		Priority:  input.Priority,
		Status:    repository.HelpPending,
	}
	if name := sanitizeText(input.Name); name != "" {
		request.UserName = &name
	}
	if phone := normalizePhone(input.PhoneNumber); phone != "" {
		request.PhoneNumber = &phone
	}

	created, err := s.requests.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("create help request: %w", err)
	}

	s.triggerWorkflow(ctx, created)
	return created, nil
}

// triggerWorkflow fires the n8n webhook. Delivery failures are logged and
// never fail the submission.
func (s *helpDeskService) triggerWorkflow(ctx context.Context, request *repository.HelpRequest) {
	if s.workflow == nil || !s.workflow.Enabled() {
		return
	}
	event := n8n.HelpRequestEvent{
		RequestID:   request.ID,
		Email:       request.UserEmail,
		Subject:     request.Subject,
		Message:     request.Message,
		Priority:    request.Priority,
		SubmittedAt: time.Unix(request.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
	if request.UserName != nil {
		event.Name = *request.UserName
	}
	if request.PhoneNumber != nil {
		event.Phone = *request.PhoneNumber
	}

	if err := s.workflow.SendHelpRequest(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "help workflow delivery failed",
			slog.Int64("request_id", request.ID),
			slog.Any("error", err),
		)
		_ = s.requests.SetWorkflow(ctx, request.ID, false, nil)
		return
	}
	_ = s.requests.SetWorkflow(ctx, request.ID, true, nil)
}

func (s *helpDeskService) MyRequests(ctx context.Context, userID int64, limit, offset int) ([]*repository.HelpRequest, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	filter := repository.HelpRequestFilter{UserID: &userID, Limit: limit, Offset: offset}
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.requests.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// FAQService serves published FAQ entries.
type FAQService interface {
	List(ctx context.Context, category *string) ([]*repository.FAQ, error)
	Get(ctx context.Context, id int64) (*repository.FAQ, error)
}

type faqService struct {
	faqs repository.FAQRepository
}

// NewFAQService wraps the FAQ repository.
func NewFAQService(faqs repository.FAQRepository) FAQService {
	return &faqService{faqs: faqs}
}

func (s *faqService) List(ctx context.Context, category *string) ([]*repository.FAQ, error) {
	return s.faqs.ListActive(ctx, category)
}

func (s *faqService) Get(ctx context.Context, id int64) (*repository.FAQ, error) {
	faq, err := s.faqs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !faq.IsActive {
		return nil, ErrNotFound
	}
	return faq, nil
}
