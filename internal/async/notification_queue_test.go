package async

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/notifier"
)

func TestQueueDrainAndRequeue(t *testing.T) {
	queue := NewNotificationQueue()

	queue.EnqueueEmail(notifier.EmailRequest{To: "a@example.com", Subject: "first"})
	queue.EnqueueEmail(notifier.EmailRequest{To: "b@example.com", Subject: "second"})
	queue.EnqueueSMS(notifier.SMSRequest{To: "+2348031234567", Message: "hi"})

	emails, sms := queue.Pending()
	assert.Equal(t, 2, emails)
	assert.Equal(t, 1, sms)

	drained := queue.DrainEmails()
	require.Len(t, drained, 2)
	assert.Equal(t, "first", drained[0].Subject)

	emails, _ = queue.Pending()
	assert.Zero(t, emails)

	// Failed sends go back to the front so delivery order is preserved.
	queue.EnqueueEmail(notifier.EmailRequest{To: "c@example.com", Subject: "third"})
	queue.RequeueEmails(drained[1:])
	drained = queue.DrainEmails()
	require.Len(t, drained, 2)
	assert.Equal(t, "second", drained[0].Subject)
	assert.Equal(t, "third", drained[1].Subject)
}

func TestQueueIgnoresEmptyRecipients(t *testing.T) {
	queue := NewNotificationQueue()
	queue.EnqueueEmail(notifier.EmailRequest{Subject: "no recipient"})
	queue.EnqueueSMS(notifier.SMSRequest{Message: "no recipient"})

	emails, sms := queue.Pending()
	assert.Zero(t, emails)
	assert.Zero(t, sms)
}

func TestQueueClonesTemplateData(t *testing.T) {
	queue := NewNotificationQueue()
	data := map[string]any{"amount_naira": "500.00"}
	queue.EnqueueEmail(notifier.EmailRequest{To: "a@example.com", Data: data})

	// Caller mutations after enqueue must not leak into the buffered copy.
	data["amount_naira"] = "0.00"

	drained := queue.DrainEmails()
	require.Len(t, drained, 1)
	assert.Equal(t, "500.00", drained[0].Data["amount_naira"])
}

func TestQueueNotifierBuffers(t *testing.T) {
	queue := NewNotificationQueue()
	svc := NewQueueNotifier(queue)

	require.NoError(t, svc.SendEmail(context.Background(), notifier.EmailRequest{To: "a@example.com"}))
	require.NoError(t, svc.SendSMS(context.Background(), notifier.SMSRequest{To: "+2348031234567", Message: "hi"}))

	emails, sms := queue.Pending()
	assert.Equal(t, 1, emails)
	assert.Equal(t, 1, sms)
}

func TestNilQueueIsSafe(t *testing.T) {
	var queue *NotificationQueue
	queue.EnqueueEmail(notifier.EmailRequest{To: "a@example.com"})
	assert.Nil(t, queue.DrainEmails())

	emails, sms := queue.Pending()
	assert.Zero(t, emails)
	assert.Zero(t, sms)
}
