package job

import (
	"context"
	"log/slog"

	"github.com/xcellar/xcellar/internal/async"
	"github.com/xcellar/xcellar/internal/notifier"
)

// NotificationDispatch drains the buffered notification queue and hands
// requests to the delivery backend. Failed requests go back on the queue
// for the next tick.
type NotificationDispatch struct {
	queue  *async.NotificationQueue
	sender notifier.Service
	logger *slog.Logger
}

func NewNotificationDispatch(queue *async.NotificationQueue, sender notifier.Service, logger *slog.Logger) *NotificationDispatch {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationDispatch{queue: queue, sender: sender, logger: logger}
}

func (j *NotificationDispatch) Name() string { return "notification_dispatch" }

func (j *NotificationDispatch) Run(ctx context.Context) error {
	emails := j.queue.DrainEmails()
	var failedEmails []notifier.EmailRequest
	for _, req := range emails {
		if err := j.sender.SendEmail(ctx, req); err != nil {
			j.logger.Warn("email dispatch failed", "to", req.To, "template", req.Template, "error", err)
			failedEmails = append(failedEmails, req)
		}
	}
	if len(failedEmails) > 0 {
		j.queue.RequeueEmails(failedEmails)
	}

	texts := j.queue.DrainSMS()
	var failedTexts []notifier.SMSRequest
	for _, req := range texts {
		if err := j.sender.SendSMS(ctx, req); err != nil {
			j.logger.Warn("sms dispatch failed", "to", req.To, "error", err)
			failedTexts = append(failedTexts, req)
		}
	}
	if len(failedTexts) > 0 {
		j.queue.RequeueSMS(failedTexts)
	}

	if sent := len(emails) + len(texts) - len(failedEmails) - len(failedTexts); sent > 0 {
		j.logger.Debug("notifications dispatched", "sent", sent)
	}
	return nil
}
