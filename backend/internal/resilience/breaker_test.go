package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// flakyStore fails FolloweeIDs while down is set. Other methods are unused.
type flakyStore struct {
	domain.Store
	down  bool
	calls int
}

func (f *flakyStore) FolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	f.calls++
	if f.down {
		return nil, apperrors.NewUnavailable("followee ids", errors.New("connection refused"))
	}
	return []string{"b"}, nil
}

func (f *flakyStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	f.calls++
	return nil, apperrors.NewNotFound("user", userID)
}

func (f *flakyStore) Close() error { return nil }

func TestGuardedStore_PassesThroughResults(t *testing.T) {
	inner := &flakyStore{}
	g := NewGuardedStore(inner, Settings{Name: "test-pass", MaxFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())

	ids, err := g.FolloweeIDs(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestGuardedStore_DomainErrorsDoNotTrip(t *testing.T) {
	inner := &flakyStore{}
	g := NewGuardedStore(inner, Settings{Name: "test-domain", MaxFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := g.GetUser(context.Background(), "ghost")
		assert.True(t, apperrors.IsNotFound(err))
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
	assert.Equal(t, 5, inner.calls)
}

func TestGuardedStore_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyStore{down: true}
	g := NewGuardedStore(inner, Settings{Name: "test-open", MaxFailures: 3, OpenTimeout: time.Minute}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.FolloweeIDs(ctx, "a")
		assert.True(t, apperrors.IsUnavailable(err))
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	inner.down = false
	_, err := g.FolloweeIDs(ctx, "a")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.calls, "open breaker must not reach the store")
}

func TestGuardedStore_RecoversAfterTimeout(t *testing.T) {
	inner := &flakyStore{down: true}
	g := NewGuardedStore(inner, Settings{Name: "test-recover", MaxFailures: 1, OpenTimeout: 20 * time.Millisecond}, zap.NewNop())
	ctx := context.Background()

	_, err := g.FolloweeIDs(ctx, "a")
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, g.State())

	inner.down = false
	time.Sleep(40 * time.Millisecond)

	ids, err := g.FolloweeIDs(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
	assert.Equal(t, gobreaker.StateClosed, g.State())
}
