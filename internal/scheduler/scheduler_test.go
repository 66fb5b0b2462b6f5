package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/stretchr/testify/assert"
)

func TestTaskWithRecover(t *testing.T) {
	s := New()
	defer s.Stop()

	var rqID string
	task := s.taskWithRecover(func(ctx context.Context) error {
		rqID = utils.GetRequestIDFromCtx(ctx)
		panic("boom")
	}, "tick")

	assert.NotPanics(t, func() { task(context.Background()) })
	assert.NotEmpty(t, rqID)
}

func TestIntervalJob_DeferredStart(t *testing.T) {
	s := New()
	var runs atomic.Int32

	s.NewIntervalJob("tick", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, time.Hour, 300*time.Millisecond)
	s.Start()
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load(), "first run waits for the start delay")

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
}
