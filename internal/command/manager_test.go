package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HukkaMehu/LePetPal/internal/arm"
	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/platform"
	"github.com/HukkaMehu/LePetPal/internal/policy"
	"github.com/HukkaMehu/LePetPal/internal/safety"
	"github.com/HukkaMehu/LePetPal/internal/store"
)

func newTestManager(t *testing.T) (*Manager, store.RequestStore) {
	t.Helper()
	s := store.NewInMemoryStore(nil)
	m := New(Options{
		Store:   s,
		Driver:  arm.NewMockDriver("rad", nil),
		Gate:    safety.NewJointGate("", true, nil),
		Factory: policy.NewScriptedFactory(),
		RateHz:  1000, // fast pacing so tests don't stall
	})
	return m, s
}

func waitForTerminal(t *testing.T, s store.RequestStore, id domain.RequestID) domain.Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, ok := s.Get(id)
		if ok && st.State.IsTerminal() {
			return st
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("request %s never reached a terminal state", id)
	return domain.Status{}
}

func TestManager_HappyPath_ReachesSucceeded(t *testing.T) {
	m, s := newTestManager(t)
	id, err := m.Start(context.Background(), domain.PromptPickUpBall)
	require.NoError(t, err)

	st := waitForTerminal(t, s, id)
	assert.Equal(t, domain.StateSucceeded, st.State)
	assert.Equal(t, messageCompleted, st.Message)
	require.NotNil(t, st.DurationMs)
	assert.Greater(t, *st.DurationMs, int64(-1))
}

func TestManager_BusyRejection(t *testing.T) {
	m, s := newTestManager(t)
	_, err := m.Start(context.Background(), domain.PromptPickUpBall)
	require.NoError(t, err)

	_, err = m.Start(context.Background(), domain.PromptGetTreat)
	assert.ErrorIs(t, err, platform.ErrBusy)
	_ = s
}

func TestManager_Preemption_AbortsActiveAndHomes(t *testing.T) {
	m, s := newTestManager(t)
	r1, err := m.Start(context.Background(), domain.PromptPickUpBall)
	require.NoError(t, err)

	r2 := m.InterruptAndHome(context.Background())
	assert.NotEqual(t, r1, r2)

	st1 := waitForTerminal(t, s, r1)
	assert.Equal(t, domain.StateAborted, st1.State)
	assert.Equal(t, messageInterrupted, st1.Message)

	st2 := waitForTerminal(t, s, r2)
	assert.Equal(t, domain.StateSucceeded, st2.State)
	assert.Equal(t, messageAtHome, st2.Message)
}

func TestManager_DoubleInterruptAndHome_BothTerminal(t *testing.T) {
	m, s := newTestManager(t)
	r1 := m.InterruptAndHome(context.Background())
	r2 := m.InterruptAndHome(context.Background())
	assert.NotEqual(t, r1, r2)

	st1 := waitForTerminal(t, s, r1)
	st2 := waitForTerminal(t, s, r2)
	assert.True(t, st1.State.IsTerminal())
	assert.True(t, st2.State.IsTerminal())
}

func TestManager_SafetyTrip_NeverCallsSendTargets(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	driver := &recordingDriver{MockDriver: *arm.NewMockDriver("rad", nil)}
	m := New(Options{
		Store:   s,
		Driver:  driver,
		Gate:    safety.NewJointGate("", true, nil),
		Factory: trippedFactory{},
		RateHz:  1000,
	})

	id, err := m.Start(context.Background(), domain.PromptPickUpBall)
	require.NoError(t, err)

	st := waitForTerminal(t, s, id)
	assert.Equal(t, domain.StateFailed, st.State)
	assert.Equal(t, messageSafetyFailed, st.Message)
	assert.Equal(t, 0, driver.sendCalls, "send_targets must never be called for a chunk that failed validation")
}

func TestManager_Stop_CallsDriverStopDirectly(t *testing.T) {
	s := store.NewInMemoryStore(nil)
	driver := &recordingDriver{MockDriver: *arm.NewMockDriver("rad", nil)}
	m := New(Options{
		Store:   s,
		Driver:  driver,
		Gate:    safety.NewJointGate("", true, nil),
		Factory: policy.NewScriptedFactory(),
		RateHz:  1000,
	})

	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, 1, driver.stopCalls)
}

func TestManager_Stop_BypassesSlotAdmission(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Start(context.Background(), domain.PromptPickUpBall)
	require.NoError(t, err)

	// Stop must succeed even while a command holds the slot — it never
	// goes through acquireSlot.
	assert.NoError(t, m.Stop(context.Background()))
}

func TestManager_SlotFreedAfterCompletion(t *testing.T) {
	m, s := newTestManager(t)
	id, err := m.Start(context.Background(), domain.PromptGetTreat)
	require.NoError(t, err)
	waitForTerminal(t, s, id)

	// The slot must be free again: a second Start should succeed.
	_, err = m.Start(context.Background(), domain.PromptGetTreat)
	assert.NoError(t, err)
}

// trippedFactory yields a single out-of-bounds chunk, modelling spec.md
// §8 scenario 5 ("targets[0]=10.0").
type trippedFactory struct{}

func (trippedFactory) New(domain.Prompt, map[string]interface{}) policy.Producer {
	return &trippedProducer{}
}

type trippedProducer struct{ done bool }

func (p *trippedProducer) Next(ctx context.Context) (domain.ControlChunk, bool) {
	if p.done {
		return domain.ControlChunk{}, false
	}
	p.done = true
	return domain.ControlChunk{Phase: "grasp", Targets: domain.Joints{10.0, 0, 0, 0, 0, 0}}, true
}
func (p *trippedProducer) Close() {}

// recordingDriver counts SendTargets calls to assert the safety-gate
// ordering invariant (spec.md §8 invariant 2).
type recordingDriver struct {
	arm.MockDriver
	sendCalls int
	stopCalls int
}

func (d *recordingDriver) SendTargets(ctx context.Context, chunk domain.ControlChunk) error {
	d.sendCalls++
	return d.MockDriver.SendTargets(ctx, chunk)
}

func (d *recordingDriver) Stop(ctx context.Context) error {
	d.stopCalls++
	return d.MockDriver.Stop(ctx)
}
