package job

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/async"
	"github.com/xcellar/xcellar/internal/notifier"
)

type scriptedSender struct {
	sentEmails []notifier.EmailRequest
	sentSMS    []notifier.SMSRequest
	failTo     string
}

func (s *scriptedSender) SendEmail(_ context.Context, req notifier.EmailRequest) error {
	if req.To == s.failTo {
		return fmt.Errorf("smtp refused")
	}
	s.sentEmails = append(s.sentEmails, req)
	return nil
}

func (s *scriptedSender) SendSMS(_ context.Context, req notifier.SMSRequest) error {
	if req.To == s.failTo {
		return fmt.Errorf("gateway refused")
	}
	s.sentSMS = append(s.sentSMS, req)
	return nil
}

func TestNotificationDispatchDrainsQueue(t *testing.T) {
	queue := async.NewNotificationQueue()
	queue.EnqueueEmail(notifier.EmailRequest{To: "a@example.com", Subject: "hi"})
	queue.EnqueueSMS(notifier.SMSRequest{To: "+2348031234567", Message: "hi"})

	sender := &scriptedSender{}
	dispatch := NewNotificationDispatch(queue, sender, nil)
	require.NoError(t, dispatch.Run(context.Background()))

	assert.Len(t, sender.sentEmails, 1)
	assert.Len(t, sender.sentSMS, 1)
	emails, sms := queue.Pending()
	assert.Zero(t, emails)
	assert.Zero(t, sms)
}

func TestNotificationDispatchRequeuesFailures(t *testing.T) {
	queue := async.NewNotificationQueue()
	queue.EnqueueEmail(notifier.EmailRequest{To: "ok@example.com"})
	queue.EnqueueEmail(notifier.EmailRequest{To: "down@example.com"})

	sender := &scriptedSender{failTo: "down@example.com"}
	dispatch := NewNotificationDispatch(queue, sender, nil)
	require.NoError(t, dispatch.Run(context.Background()))

	assert.Len(t, sender.sentEmails, 1)
	emails, _ := queue.Pending()
	assert.Equal(t, 1, emails)

	// A later tick retries the failed request once the backend recovers.
	sender.failTo = ""
	require.NoError(t, dispatch.Run(context.Background()))
	assert.Len(t, sender.sentEmails, 2)
	assert.Equal(t, "down@example.com", sender.sentEmails[1].To)
	emails, _ = queue.Pending()
	assert.Zero(t, emails)
}
