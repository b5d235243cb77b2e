package async

import (
	"context"
	"fmt"

	"github.com/xcellar/xcellar/internal/notifier"
)

// QueueNotifier implements notifier.Service by buffering requests for the
// background dispatch job.
type QueueNotifier struct {
	queue *NotificationQueue
}

// NewQueueNotifier wraps a notification queue as a notifier.Service.
func NewQueueNotifier(queue *NotificationQueue) notifier.Service {
	return &QueueNotifier{queue: queue}
}

// SendEmail enqueues the email request for asynchronous delivery.
func (n *QueueNotifier) SendEmail(_ context.Context, req notifier.EmailRequest) error {
	if n == nil || n.queue == nil {
		return fmt.Errorf("notification queue unavailable")
	}
	n.queue.EnqueueEmail(req)
	return nil
}

// SendSMS enqueues the text message for asynchronous delivery.
func (n *QueueNotifier) SendSMS(_ context.Context, req notifier.SMSRequest) error {
	if n == nil || n.queue == nil {
		return fmt.Errorf("notification queue unavailable")
	}
	n.queue.EnqueueSMS(req)
	return nil
}
