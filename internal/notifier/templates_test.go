package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogRenders(t *testing.T) {
	catalog := DefaultCatalog()

	rendered, err := catalog.Render("deposit_received", map[string]any{
		"amount_naira": "1500.00",
		"reference":    "TXN_abc123",
	})
	require.NoError(t, err)
	assert.Equal(t, "Deposit received", rendered.Subject)
	assert.Contains(t, rendered.Body, "NGN 1500.00")
	assert.Contains(t, rendered.Body, "TXN_abc123")
}

func TestRenderSubjectPlaceholders(t *testing.T) {
	rendered, err := DefaultCatalog().Render("order_delivered", map[string]any{
		"order_number":    "ORD-abc",
		"tracking_number": "TRK-def",
	})
	require.NoError(t, err)
	assert.Equal(t, "Your order ORD-abc has been delivered", rendered.Subject)
	assert.Contains(t, rendered.Body, "TRK-def")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := DefaultCatalog().Render("does_not_exist", nil)
	assert.Error(t, err)
}

func TestParseCatalogRejectsBadYAML(t *testing.T) {
	_, err := ParseCatalog([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestLoggerServiceRequiresRecipient(t *testing.T) {
	svc := NewLoggerService(nil)
	assert.Error(t, svc.SendEmail(t.Context(), EmailRequest{Subject: "hi"}))
	assert.Error(t, svc.SendSMS(t.Context(), SMSRequest{Message: "hi"}))
}
