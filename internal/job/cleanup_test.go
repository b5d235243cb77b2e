package job

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/repository"
)

type fakeCartCleaner struct {
	repository.CartRepository
	cutoff  int64
	removed int64
	err     error
}

func (f *fakeCartCleaner) DeleteStale(_ context.Context, before int64) (int64, error) {
	f.cutoff = before
	return f.removed, f.err
}

type fakeLoginCleaner struct {
	repository.LoginLogRepository
	cutoff  int64
	removed int64
}

func (f *fakeLoginCleaner) DeleteBefore(_ context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return f.removed, nil
}

func TestStaleCartCleanupCutoff(t *testing.T) {
	carts := &fakeCartCleaner{removed: 3}
	job := NewStaleCartCleanup(carts, nil)

	require.NoError(t, job.Run(context.Background()))

	want := time.Now().Add(-30 * 24 * time.Hour).Unix()
	assert.InDelta(t, want, carts.cutoff, 5)
}

func TestStaleCartCleanupPropagatesError(t *testing.T) {
	carts := &fakeCartCleaner{err: fmt.Errorf("db locked")}
	job := NewStaleCartCleanup(carts, nil)
	assert.Error(t, job.Run(context.Background()))
}

func TestLoginLogCleanupCutoff(t *testing.T) {
	logins := &fakeLoginCleaner{removed: 10}
	job := NewLoginLogCleanup(logins, nil)

	require.NoError(t, job.Run(context.Background()))

	want := time.Now().Add(-90 * 24 * time.Hour).Unix()
	assert.InDelta(t, want, logins.cutoff, 5)
}
