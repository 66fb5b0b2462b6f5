package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/KotFed0t/crypto_vault_tracker/internal/metrics"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	default:
		return "idle"
	}
}

type Recorder interface {
	TickResult(result string)
}

// TickGuard lets one tick run at a time. Scheduled and manual runs share it; a run that
// finds the guard busy is skipped, not queued.
type TickGuard struct {
	mu       sync.Mutex
	state    State
	recorder Recorder
}

func NewTickGuard(recorder Recorder) *TickGuard {
	return &TickGuard{recorder: recorder}
}

// Run returns service.ErrTickInProgress without calling fn while another run holds the guard.
// The guard is released when fn returns, fails or panics.
func (g *TickGuard) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	if g.state == StateRunning {
		g.mu.Unlock()
		slog.Info("tick skipped, guard busy", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("op", "TickGuard.Run"))
		g.recorder.TickResult(metrics.TickSkipped)
		return service.ErrTickInProgress
	}
	g.state = StateRunning
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.state = StateIdle
		g.mu.Unlock()
	}()

	return fn(ctx)
}

func (g *TickGuard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
