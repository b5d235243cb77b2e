package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if len(opts.SigningKey) == 0 {
		opts.SigningKey = []byte("test-signing-key-0123456789abcdef")
	}
	m, err := NewManager(opts)
	require.NoError(t, err)
	return m
}

func TestNewManagerRequiresKey(t *testing.T) {
	_, err := NewManager(Options{})
	assert.Error(t, err)
}

func TestIssuePairRoundTrip(t *testing.T) {
	m := newTestManager(t, Options{Issuer: "xcellar", Audience: "app"})

	pair, err := m.IssuePair("42", "COURIER", "rider@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	claims, err := m.ParseOfType(pair.Access, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "COURIER", claims.UserType)
	assert.Equal(t, "rider@example.com", claims.Email)
	assert.Equal(t, "xcellar", claims.Issuer)

	refreshClaims, err := m.ParseOfType(pair.Refresh, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "42", refreshClaims.Subject)
}

func TestParseOfTypeRejectsMismatch(t *testing.T) {
	m := newTestManager(t, Options{})
	pair, err := m.IssuePair("7", "USER", "jane@example.com")
	require.NoError(t, err)

	_, err = m.ParseOfType(pair.Access, TypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = m.ParseOfType(pair.Refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t, Options{})
	pair, err := m.IssuePair("7", "USER", "jane@example.com")
	require.NoError(t, err)

	_, err = m.Parse(pair.Access + "x")
	assert.Error(t, err)

	// A token signed with another key must not verify.
	other := newTestManager(t, Options{SigningKey: []byte("another-key-entirely-000000000000")})
	otherPair, err := other.IssuePair("7", "USER", "jane@example.com")
	require.NoError(t, err)
	_, err = m.Parse(otherPair.Access)
	assert.Error(t, err)
}

func TestParseExpiredToken(t *testing.T) {
	m := newTestManager(t, Options{})
	signed, _, err := m.Issue(IssueInput{
		Subject:   "7",
		TokenType: TypeAccess,
		TTL:       -time.Minute,
	})
	require.NoError(t, err)

	_, err = m.Parse(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseChecksIssuerAndAudience(t *testing.T) {
	issuerA := newTestManager(t, Options{Issuer: "service-a"})
	issuerB := newTestManager(t, Options{Issuer: "service-b"})

	pair, err := issuerA.IssuePair("7", "USER", "jane@example.com")
	require.NoError(t, err)
	_, err = issuerB.Parse(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	audienced := newTestManager(t, Options{Audience: "mobile"})
	plain := newTestManager(t, Options{})
	pair, err = plain.IssuePair("7", "USER", "jane@example.com")
	require.NoError(t, err)
	_, err = audienced.Parse(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshIssuesNewPair(t *testing.T) {
	m := newTestManager(t, Options{})
	pair, err := m.IssuePair("42", "USER", "jane@example.com")
	require.NoError(t, err)

	refreshed, err := m.Refresh(pair.RefreshClaims)
	require.NoError(t, err)
	claims, err := m.ParseOfType(refreshed.Access, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Email)

	// Access claims cannot be exchanged.
	_, err = m.Refresh(pair.AccessClaims)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestDefaultTTLs(t *testing.T) {
	m := newTestManager(t, Options{})
	pair, err := m.IssuePair("1", "USER", "a@example.com")
	require.NoError(t, err)

	accessLife := time.Until(pair.AccessClaims.ExpiresAt.Time)
	refreshLife := time.Until(pair.RefreshClaims.ExpiresAt.Time)
	assert.InDelta(t, (24 * time.Hour).Seconds(), accessLife.Seconds(), 5)
	assert.InDelta(t, (48 * time.Hour).Seconds(), refreshLife.Seconds(), 5)
}
