// Package async buffers outbound notifications so request handlers never
// block on delivery. A background job drains the queue.
package async

import (
	"maps"
	"sync"

	"github.com/xcellar/xcellar/internal/notifier"
)

// NotificationQueue buffers outbound email and SMS tasks for background
// dispatch. Requests are copied on enqueue so callers can reuse maps.
type NotificationQueue struct {
	mu     sync.Mutex
	emails []notifier.EmailRequest
	sms    []notifier.SMSRequest
}

// NewNotificationQueue returns an empty queue.
func NewNotificationQueue() *NotificationQueue {
	return &NotificationQueue{
		emails: make([]notifier.EmailRequest, 0),
		sms:    make([]notifier.SMSRequest, 0),
	}
}

// EnqueueEmail appends a pending email request.
func (q *NotificationQueue) EnqueueEmail(req notifier.EmailRequest) {
	if q == nil || req.To == "" {
		return
	}
	q.mu.Lock()
	q.emails = append(q.emails, cloneEmailRequest(req))
	q.mu.Unlock()
}

// EnqueueSMS appends a pending text message.
func (q *NotificationQueue) EnqueueSMS(req notifier.SMSRequest) {
	if q == nil || req.To == "" {
		return
	}
	q.mu.Lock()
	q.sms = append(q.sms, req)
	q.mu.Unlock()
}

// DrainEmails returns all pending email requests and clears the buffer.
func (q *NotificationQueue) DrainEmails() []notifier.EmailRequest {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.emails
	q.emails = make([]notifier.EmailRequest, 0)
	return drained
}

// DrainSMS returns all pending text messages and clears the buffer.
func (q *NotificationQueue) DrainSMS() []notifier.SMSRequest {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.sms
	q.sms = make([]notifier.SMSRequest, 0)
	return drained
}

// RequeueEmails puts failed sends back at the front of the buffer.
func (q *NotificationQueue) RequeueEmails(reqs []notifier.EmailRequest) {
	if q == nil || len(reqs) == 0 {
		return
	}
	q.mu.Lock()
	q.emails = append(append(make([]notifier.EmailRequest, 0, len(reqs)+len(q.emails)), reqs...), q.emails...)
	q.mu.Unlock()
}

// RequeueSMS puts failed sends back at the front of the buffer.
func (q *NotificationQueue) RequeueSMS(reqs []notifier.SMSRequest) {
	if q == nil || len(reqs) == 0 {
		return
	}
	q.mu.Lock()
	q.sms = append(append(make([]notifier.SMSRequest, 0, len(reqs)+len(q.sms)), reqs...), q.sms...)
	q.mu.Unlock()
}

// Pending reports buffered task counts.
func (q *NotificationQueue) Pending() (emails, sms int) {
	if q == nil {
		return 0, 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.emails), len(q.sms)
}

func cloneEmailRequest(req notifier.EmailRequest) notifier.EmailRequest {
	clone := req
	if req.Data != nil {
		clone.Data = maps.Clone(req.Data)
	}
	return clone
}
