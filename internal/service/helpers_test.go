package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"08031234567", "+2348031234567"},
		{"0803 123 4567", "+2348031234567"},
		{"0803-123-4567", "+2348031234567"},
		{"+2348031234567", "+2348031234567"},
		{"  +44 20 7946 0958 ", "+442079460958"},
		{"(0803) 123 4567", "+2348031234567"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizePhone(tc.in), "input %q", tc.in)
	}
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, isValidPhone("+2348031234567"))
	assert.True(t, isValidPhone("08031234567"))
	assert.False(t, isValidPhone("12345"))
	assert.False(t, isValidPhone("not-a-phone"))
	assert.False(t, isValidPhone(""))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", normalizeEmail("  Jane@Example.COM "))
	assert.Equal(t, "", normalizeEmail("   "))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, isValidEmail("jane@example.com"))
	assert.False(t, isValidEmail("jane@example"))
	assert.False(t, isValidEmail("jane example@x.com"))
	assert.False(t, isValidEmail(""))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", maskEmail("jdoe@example.com"))
	assert.Equal(t, "not-an-email", maskEmail("not-an-email"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello", sanitizeText("  hello  "))
	assert.Equal(t, "hello", sanitizeText("<script>alert(1)</script>hello"))
	assert.Equal(t, "bold text", sanitizeText("<b>bold</b> text"))
	assert.Equal(t, "", sanitizeText("   "))
}

func TestOrderAndTrackingNumbers(t *testing.T) {
	order := newOrderNumber()
	tracking := newTrackingNumber()
	reference := newTxnReference()

	assert.Regexp(t, `^ORD-[0-9a-f]{12}$`, order)
	assert.Regexp(t, `^TRK-[0-9a-f]{16}$`, tracking)
	assert.Regexp(t, `^TXN_[0-9a-f]{12}$`, reference)

	assert.NotEqual(t, newOrderNumber(), order)
}
