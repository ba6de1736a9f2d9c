// Package dispenser implements the TreatDispenser contract of spec.md
// §4.B: one-shot actuation of a bounded duration.
package dispenser

import (
	"context"
	"fmt"
	"time"

	"github.com/HukkaMehu/LePetPal/internal/platform"
)

// Dispenser is the contract the façade's /dispense_treat handler depends
// on. It is held synchronous intentionally (spec.md §5): treat delivery
// is expected to complete in under a second, so the HTTP request thread
// blocks on it rather than spawning a worker.
type Dispenser interface {
	Dispense(ctx context.Context, durationMs int) error
}

// MockDispenser blocks for max(0, durationMs) and returns, matching
// spec.md §4.B and the boundary rule in §8 ("duration_ms negative...
// treated as 0 (no-op) and 200").
type MockDispenser struct {
	logger platform.Logger
}

// NewMockDispenser builds a Dispenser with no physical actuator.
func NewMockDispenser(logger platform.Logger) *MockDispenser {
	if logger == nil {
		logger = platform.NoOpLogger{}
	}
	return &MockDispenser{logger: logger}
}

// Dispense blocks for the clamped duration then returns nil, or
// platform.ErrHardware if ctx is cancelled mid-actuation.
func (d *MockDispenser) Dispense(ctx context.Context, durationMs int) error {
	if durationMs < 0 {
		durationMs = 0
	}
	select {
	case <-time.After(time.Duration(durationMs) * time.Millisecond):
		d.logger.Info("treat dispensed", map[string]interface{}{"duration_ms": durationMs})
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", platform.ErrHardware, ctx.Err())
	}
}
