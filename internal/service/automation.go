package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// AutomationAction is one inbound workflow callback. Handlers authenticate
// the shared token before this service runs.
type AutomationAction struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// AutomationResult is the dispatch outcome returned to the workflow.
type AutomationResult struct {
	Action string `json:"action"`
	Detail any    `json:"detail,omitempty"`
}

// AutomationService dispatches inbound n8n workflow callbacks.
type AutomationService interface {
	Dispatch(ctx context.Context, action AutomationAction) (*AutomationResult, error)
}

type automationService struct {
	requests repository.HelpRequestRepository
	orders   repository.OrderRepository
	tracking repository.TrackingRepository
}

// NewAutomationService assembles workflow callback handling.
func NewAutomationService(
	requests repository.HelpRequestRepository,
	orders repository.OrderRepository,
	tracking repository.TrackingRepository,
) AutomationService {
	return &automationService{requests: requests, orders: orders, tracking: tracking}
}

func (s *automationService) Dispatch(ctx context.Context, action AutomationAction) (*AutomationResult, error) {
	switch action.Action {
	case "test":
		var echo any
		if len(action.Data) > 0 {
			if err := json.Unmarshal(action.Data, &echo); err != nil {
				return nil, fmt.Errorf("%w: malformed data", ErrValidation)
			}
		}
		return &AutomationResult{Action: "test", Detail: echo}, nil

	case "help.ack":
		return s.setHelpStatus(ctx, action.Data, repository.HelpInProgress)

	case "help.resolve":
		return s.setHelpStatus(ctx, action.Data, repository.HelpResolved)

	case "order.note":
		return s.appendOrderNote(ctx, action.Data)

	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action.Action)
	}
}

func (s *automationService) setHelpStatus(ctx context.Context, data json.RawMessage, status string) (*AutomationResult, error) {
	var payload struct {
		RequestID  int64   `json:"request_id"`
		WorkflowID *string `json:"workflow_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.RequestID == 0 {
		return nil, fmt.Errorf("%w: request_id is required", ErrValidation)
	}

	request, err := s.requests.FindByID(ctx, payload.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.requests.SetStatus(ctx, request.ID, status, time.Now().Unix()); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if payload.WorkflowID != nil {
		_ = s.requests.SetWorkflow(ctx, request.ID, true, payload.WorkflowID)
	}
	return &AutomationResult{Action: "help." + status, Detail: map[string]any{
		"request_id": request.ID,
		"status":     status,
	}}, nil
}

func (s *automationService) appendOrderNote(ctx context.Context, data json.RawMessage) (*AutomationResult, error) {
	var payload struct {
		OrderID     int64  `json:"order_id"`
		OrderNumber string `json:"order_number"`
		Note        string `json:"note"`
		Location    string `json:"location"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed data", ErrValidation)
	}
	note := sanitizeText(payload.Note)
	if note == "" {
		return nil, fmt.Errorf("%w: note is required", ErrValidation)
	}

	var order *repository.Order
	var err error
	switch {
	case payload.OrderID != 0:
		order, err = s.orders.FindByID(ctx, payload.OrderID)
	case payload.OrderNumber != "":
		order, err = s.orders.FindByNumber(ctx, payload.OrderNumber)
	default:
		return nil, fmt.Errorf("%w: order_id or order_number is required", ErrValidation)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := s.tracking.Append(ctx, &repository.TrackingEntry{
		OrderID:   order.ID,
		Status:    order.Status,
		Location:  sanitizeText(payload.Location),
		Notes:     note,
		CreatedAt: time.Now().Unix(),
	}); err != nil {
		return nil, fmt.Errorf("append note: %w", err)
	}
	return &AutomationResult{Action: "order.note", Detail: map[string]any{
		"order_id": order.ID,
	}}, nil
}
