package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/KotFed0t/crypto_vault_tracker/internal/metrics"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *fakeRecorder) TickResult(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[result]++
}

func TestTickGuard_SkipsWhileRunning(t *testing.T) {
	rec := &fakeRecorder{}
	guard := NewTickGuard(rec)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- guard.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	assert.Equal(t, StateRunning, guard.State())

	ran := false
	err := guard.Run(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, service.ErrTickInProgress)
	assert.False(t, ran)
	assert.Equal(t, 1, rec.results[metrics.TickSkipped])

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, guard.State())
}

func TestTickGuard_IdleAfterError(t *testing.T) {
	guard := NewTickGuard(&fakeRecorder{})
	boom := errors.New("boom")

	err := guard.Run(context.Background(), func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateIdle, guard.State())
}

func TestTickGuard_IdleAfterPanic(t *testing.T) {
	guard := NewTickGuard(&fakeRecorder{})

	assert.Panics(t, func() {
		_ = guard.Run(context.Background(), func(ctx context.Context) error { panic("boom") })
	})
	assert.Equal(t, StateIdle, guard.State())

	err := guard.Run(context.Background(), func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
}
