// Package arm implements the ArmDriver contract of spec.md §4.A: connect,
// stream targets, home, stop, and the handoff macro for a 6-DOF follower
// arm. The mock driver is grounded on original_source's
// backend/adapters/arm_adapter.py ArmAdapter, reworked as a Go interface +
// struct the way gomind wraps external dependencies (core.Discovery,
// core.Memory) behind a small interface with a mock and a real
// implementation selected by configuration.
package arm

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/platform"
)

// Driver is the contract CommandManager's worker depends on. Every method
// may block up to a small bounded delay; a transport-level failure is
// reported as an error rather than a panic, so the worker can absorb it
// into a failed Status (spec.md §4.A, §7).
type Driver interface {
	Connect(ctx context.Context) (bool, error)
	SendTargets(ctx context.Context, chunk domain.ControlChunk) error
	Home(ctx context.Context) error
	Stop(ctx context.Context) error
	ThrowMacro(ctx context.Context) error
	JointAngles() domain.Joints
}

// controlPeriod is the unit of simulated hardware latency: SendTargets
// blocks one period, Home four, and ThrowMacro one per waypoint (three),
// consistent with "may block up to a small bounded delay" in spec.md §4.A.
const controlPeriod = 5 * time.Millisecond

// MockDriver is the in-process arm used when USE_HARDWARE=false (the
// default) and in every test: "connect() always succeeds" (spec.md §4.A).
// It keeps the last commanded pose, the same bookkeeping
// ArmAdapter._joints performs.
type MockDriver struct {
	mu         sync.Mutex
	joints     domain.Joints
	connected  bool
	jointUnits string // "rad" | "deg", display-only — supplemented feature 1
	logger     platform.Logger
}

// NewMockDriver builds a MockDriver. jointUnits controls only how the
// commanded pose is logged (SendTargets, Home) for operator visibility;
// JointAngles and the wire contract
// (ControlChunk.Targets) is always radians per spec.md §3.
func NewMockDriver(jointUnits string, logger platform.Logger) *MockDriver {
	if logger == nil {
		logger = platform.NoOpLogger{}
	}
	if jointUnits == "" {
		jointUnits = "rad"
	}
	return &MockDriver{jointUnits: jointUnits, logger: logger}
}

// Connect is idempotent and always succeeds in mock mode.
func (d *MockDriver) Connect(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	d.logger.Info("arm connected", map[string]interface{}{"mode": "mock"})
	return true, nil
}

// SendTargets advances the commanded pose. It blocks for one control
// period to stand in for the hardware's command-and-settle latency.
func (d *MockDriver) SendTargets(ctx context.Context, chunk domain.ControlChunk) error {
	select {
	case <-time.After(controlPeriod):
	case <-ctx.Done():
		return ctx.Err()
	}
	d.mu.Lock()
	d.joints = chunk.Targets
	d.mu.Unlock()
	d.logger.Debug("arm targets commanded", map[string]interface{}{"pose": d.displayJoints(chunk.Targets), "unit": d.jointUnits})
	return nil
}

// Home blocks until the arm reaches the canonical home pose.
func (d *MockDriver) Home(ctx context.Context) error {
	select {
	case <-time.After(controlPeriod * 4):
	case <-ctx.Done():
		return ctx.Err()
	}
	d.mu.Lock()
	d.joints = domain.HomePose()
	d.mu.Unlock()
	d.logger.Info("arm homed", map[string]interface{}{"pose": d.displayJoints(domain.HomePose()), "unit": d.jointUnits})
	return nil
}

// Stop releases the device, best-effort.
func (d *MockDriver) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	d.logger.Info("arm stopped", nil)
	return nil
}

// ThrowMacro runs a short, open-loop handoff sequence.
func (d *MockDriver) ThrowMacro(ctx context.Context) error {
	waypoints := []domain.Joints{
		{0, -0.3, 0.1, 0, 0.4, 0},
		{0, -0.1, 0.4, 0, 0.2, 0},
		{0, 0.1, 0.2, 0, 0, 0},
	}
	for _, wp := range waypoints {
		select {
		case <-time.After(controlPeriod):
		case <-ctx.Done():
			return ctx.Err()
		}
		d.mu.Lock()
		d.joints = wp
		d.mu.Unlock()
	}
	d.logger.Info("throw macro complete", nil)
	return nil
}

// JointAngles returns the last commanded pose. Hardware feedback is not
// assumed (spec.md §4.A). Always radians, matching the wire contract in
// spec.md §3 — jointUnits only affects log output, never this accessor.
func (d *MockDriver) JointAngles() domain.Joints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.joints
}

// displayJoints converts j to the configured display unit for logging
// (supplemented feature 1), matching the original's get_joint_angles
// conversion. The wire contract stays radians; only log lines are affected.
func (d *MockDriver) displayJoints(j domain.Joints) domain.Joints {
	if d.jointUnits != "deg" {
		return j
	}
	var out domain.Joints
	for i, v := range j {
		out[i] = v * 180 / math.Pi
	}
	return out
}
