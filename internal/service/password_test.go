package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/xcellar/xcellar/internal/cache"
	"github.com/xcellar/xcellar/internal/migrations"
	"github.com/xcellar/xcellar/internal/repository"
	sqliterepo "github.com/xcellar/xcellar/internal/repository/sqlite"
	"github.com/xcellar/xcellar/internal/security"
	"github.com/xcellar/xcellar/internal/support/hash"
)

type resetFixture struct {
	svc    PasswordResetService
	store  *sqliterepo.Store
	hasher hash.Hasher
	user   *repository.User
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))

	store := sqliterepo.NewStore(db)
	hasher, err := hash.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	limiter, err := security.NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)

	hashed, err := hasher.Hash("0ldPassw0rd!")
	require.NoError(t, err)
	user, err := store.Users().Create(context.Background(), &repository.User{
		Email:    "jane@example.com",
		Password: hashed,
		UserType: repository.UserTypeCustomer,
		IsActive: true,
	})
	require.NoError(t, err)

	svc := NewPasswordResetService(store.Users(), store.PasswordResets(), hasher, nil, limiter, 15*time.Minute)
	return &resetFixture{svc: svc, store: store, hasher: hasher, user: user}
}

// seedToken stores a reset token for the fixture user and returns the raw
// value a reset email would carry.
func (f *resetFixture) seedToken(t *testing.T, raw string, expiresAt int64) *repository.PasswordResetToken {
	t.Helper()
	record, err := f.store.PasswordResets().Create(context.Background(), &repository.PasswordResetToken{
		UserID:    f.user.ID,
		TokenHash: hashResetToken(raw),
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
	return record
}

func TestConfirmResetChangesPassword(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	f.seedToken(t, "tok-valid", time.Now().Add(10*time.Minute).Unix())

	require.NoError(t, f.svc.ConfirmReset(ctx, "tok-valid", "n3wPassw0rd!", "203.0.113.9"))

	stored, err := f.store.Users().FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.NoError(t, f.hasher.Compare(stored.Password, "n3wPassw0rd!"))
	assert.Error(t, f.hasher.Compare(stored.Password, "0ldPassw0rd!"))

	// The token is single-use.
	err = f.svc.ConfirmReset(ctx, "tok-valid", "an0therPass!", "203.0.113.9")
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestConfirmResetDistinguishesTokenStates(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	err := f.svc.ConfirmReset(ctx, "tok-unknown", "n3wPassw0rd!", "203.0.113.9")
	assert.ErrorIs(t, err, ErrInvalidToken)

	f.seedToken(t, "tok-expired", time.Now().Add(-time.Minute).Unix())
	err = f.svc.ConfirmReset(ctx, "tok-expired", "n3wPassw0rd!", "203.0.113.9")
	assert.ErrorIs(t, err, ErrTokenExpired)

	record := f.seedToken(t, "tok-used", time.Now().Add(10*time.Minute).Unix())
	require.NoError(t, f.store.PasswordResets().MarkUsed(ctx, record.ID, time.Now().Unix()))
	err = f.svc.ConfirmReset(ctx, "tok-used", "n3wPassw0rd!", "203.0.113.9")
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestConfirmResetRateLimitedPerIP(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	// Ten guesses from one address fit the window; the eleventh does not.
	for i := 0; i < 10; i++ {
		err := f.svc.ConfirmReset(ctx, fmt.Sprintf("tok-guess-%d", i), "n3wPassw0rd!", "198.51.100.7")
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	err := f.svc.ConfirmReset(ctx, "tok-guess-11", "n3wPassw0rd!", "198.51.100.7")
	assert.ErrorIs(t, err, ErrRateLimited)

	// A different address is unaffected.
	err = f.svc.ConfirmReset(ctx, "tok-other", "n3wPassw0rd!", "198.51.100.8")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequestResetDoesNotRevealAccounts(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	hit, err := f.svc.RequestReset(ctx, "jane@example.com", "203.0.113.9")
	require.NoError(t, err)
	miss, err := f.svc.RequestReset(ctx, "nobody@example.com", "203.0.113.9")
	require.NoError(t, err)
	assert.NotEmpty(t, hit.MaskedEmail)
	assert.NotEmpty(t, miss.MaskedEmail)
}
