// Package command implements CommandManager, spec.md §4.G — "the heart":
// single-active-command admission, cooperative preemption via "go home",
// safety-gated dispatch from PolicyProducer to ArmDriver, and Status
// bookkeeping through RequestStore. Modelled on gomind's async task
// worker pattern (core/async_task.go's Task/TaskStatus lifecycle) but
// specialized to one exclusive physical resource instead of a queued
// worker pool — spec.md §4.G's "Rationale — why not queue?" rules out
// the queueing half of that pattern on purpose.
package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HukkaMehu/LePetPal/internal/arm"
	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/platform"
	"github.com/HukkaMehu/LePetPal/internal/policy"
	"github.com/HukkaMehu/LePetPal/internal/safety"
	"github.com/HukkaMehu/LePetPal/internal/store"
)

// messageInterrupted and messageSafetyFailed are the fixed Status
// messages spec.md's worker algorithm and end-to-end scenarios pin down
// verbatim (§4.G, §8 scenario 3 and 5).
const (
	messageInterrupted  = "Interrupted by Go Home"
	messageSafetyFailed = "safety check failed"
	messageAtHome       = "At home pose"
	messageCompleted    = "Completed"
	messageThrowing     = "throwing"
)

// Manager is the CommandManager. Exactly one instance exists per
// process; it owns the ActiveSlot and the one-shot cancel signal spec.md
// §4.G describes.
type Manager struct {
	store     store.RequestStore
	driver    arm.Driver
	gate      safety.Gate
	factory   policy.Factory
	rateHz    float64
	logger    platform.Logger
	telemetry platform.Telemetry

	mu       sync.Mutex // guards ActiveSlot + cancel below
	active   *domain.RequestID
	cancelCh chan struct{} // closed once to signal the active worker; nil when no worker is running
}

// Options bundles the collaborators a Manager needs, avoiding a long
// positional constructor — the same "Services record constructed at
// startup" re-architecture spec.md §9 calls for in place of global
// singleton adapters.
type Options struct {
	Store     store.RequestStore
	Driver    arm.Driver
	Gate      safety.Gate
	Factory   policy.Factory
	RateHz    float64
	Logger    platform.Logger
	Telemetry platform.Telemetry
}

// New builds a Manager. RateHz defaults to 15 (spec.md §6) if zero.
func New(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = platform.NoOpLogger{}
	}
	if opts.Telemetry == nil {
		opts.Telemetry = platform.NoOpTelemetry{}
	}
	if opts.RateHz <= 0 {
		opts.RateHz = 15
	}
	return &Manager{
		store:     opts.Store,
		driver:    opts.Driver,
		gate:      opts.Gate,
		factory:   opts.Factory,
		rateHz:    opts.RateHz,
		logger:    opts.Logger,
		telemetry: opts.Telemetry,
	}
}

// Start admits prompt per spec.md §4.G's admission algorithm. prompt must
// not be domain.PromptGoHome — the façade routes that prompt to
// InterruptAndHome instead, since "go home" is always admitted and never
// goes through this slot-occupancy check.
func (m *Manager) Start(ctx context.Context, prompt domain.Prompt) (domain.RequestID, error) {
	id, cancel, err := m.acquireSlot()
	if err != nil {
		m.logger.WarnWithContext(ctx, "command rejected, slot busy", map[string]interface{}{"prompt": string(prompt)})
		return "", err
	}

	m.logger.InfoWithContext(ctx, "command admitted", map[string]interface{}{"request_id": string(id), "prompt": string(prompt)})
	m.store.Create(id, domain.Status{State: domain.StatePlanning, Message: fmt.Sprintf("Accepted: %s", prompt)})
	go m.runWorker(id, prompt, cancel)
	return id, nil
}

// acquireSlot implements steps 1-3 of the admission algorithm: acquire
// the mutex, reject if occupied, else mint an id, occupy the slot, and
// hand back a fresh cancel channel for the spawned worker to watch.
func (m *Manager) acquireSlot() (domain.RequestID, chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return "", nil, platform.ErrBusy
	}
	id := store.NewRequestID()
	m.active = &id
	cancel := make(chan struct{})
	m.cancelCh = cancel
	return id, cancel, nil
}

// releaseSlot clears the active slot iff it is still held by id — a
// preemption may have already replaced it with a homing request's id, in
// which case this worker must not clobber that occupancy.
func (m *Manager) releaseSlot(id domain.RequestID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && *m.active == id {
		m.active = nil
		m.cancelCh = nil
	}
}

// ActiveRequestID reports the id currently holding the slot, or ("", false)
// when idle. Backs the GET /status (no id) convenience route.
func (m *Manager) ActiveRequestID() (domain.RequestID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return "", false
	}
	return *m.active, true
}

// runWorker is the worker algorithm for a non-"go home" prompt (spec.md
// §4.G). It is the sole owner of the arm for the lifetime of id.
func (m *Manager) runWorker(id domain.RequestID, prompt domain.Prompt, cancel chan struct{}) {
	ctx, span := m.telemetry.StartSpan(context.Background(), "command.worker")
	defer span.End()
	span.SetAttribute("request_id", string(id))
	span.SetAttribute("prompt", string(prompt))
	defer m.releaseSlot(id)

	t0 := time.Now()
	m.store.Update(id, domain.Patch{State: domain.StateExecuting, Phase: domain.StrPtr("detect"), Message: "Detecting"})

	producer := m.factory.New(prompt, nil)
	defer producer.Close()

	period := time.Duration(float64(time.Second) / m.rateHz)

	for {
		select {
		case <-cancel:
			m.abortToHome(ctx, id)
			return
		default:
		}

		chunk, ok := producer.Next(ctx)
		if !ok {
			break
		}

		if !m.gate.ValidateTargets(chunk) {
			m.store.Update(id, domain.Patch{State: domain.StateFailed, Message: messageSafetyFailed, DurationMs: domain.I64Ptr(domain.Elapsed(t0))})
			span.RecordError(fmt.Errorf("%w", platform.ErrSafetyRejected))
			m.logger.Warn("command failed safety check", map[string]interface{}{"request_id": string(id), "phase": chunk.Phase})
			return
		}

		if err := m.driver.SendTargets(ctx, chunk); err != nil {
			m.store.Update(id, domain.Patch{State: domain.StateFailed, Message: err.Error(), DurationMs: domain.I64Ptr(domain.Elapsed(t0))})
			span.RecordError(err)
			m.logger.Error("command failed sending targets", map[string]interface{}{"request_id": string(id), "error": err.Error()})
			return
		}

		msg := chunk.Phase
		if msg == "" {
			msg = "executing"
		}
		m.store.Update(id, domain.Patch{State: domain.StateExecuting, Phase: domain.StrPtr(chunk.Phase), Confidence: domain.F64Ptr(chunk.Confidence), Message: msg})

		select {
		case <-time.After(period):
		case <-cancel:
			m.abortToHome(ctx, id)
			return
		}
	}

	if prompt == domain.PromptPickUpBall && m.gate.ReadyToThrow(m.driver.JointAngles()) && m.gate.WorkspaceClear() {
		m.store.Update(id, domain.Patch{State: domain.StateHandoffMacro, Message: messageThrowing})
		if err := m.driver.ThrowMacro(ctx); err != nil {
			m.store.Update(id, domain.Patch{State: domain.StateFailed, Message: err.Error(), DurationMs: domain.I64Ptr(domain.Elapsed(t0))})
			span.RecordError(err)
			m.logger.Error("throw macro failed", map[string]interface{}{"request_id": string(id), "error": err.Error()})
			return
		}
	}

	m.store.Update(id, domain.Patch{State: domain.StateSucceeded, Message: messageCompleted, DurationMs: domain.I64Ptr(domain.Elapsed(t0))})
	m.logger.Info("command completed", map[string]interface{}{"request_id": string(id), "duration_ms": domain.Elapsed(t0)})
}

// abortToHome runs the cancellation branch of the worker algorithm: home
// the arm, then report aborted regardless of home()'s own outcome — the
// cancel signal always wins the race, per spec.md §4.G step 1's "aborts
// without side effect beyond home()".
func (m *Manager) abortToHome(ctx context.Context, id domain.RequestID) {
	m.logger.Info("command preempted, homing", map[string]interface{}{"request_id": string(id)})
	_ = m.driver.Home(ctx)
	m.store.Update(id, domain.Patch{State: domain.StateAborted, Message: messageInterrupted})
}

// InterruptAndHome implements spec.md §4.G's second public operation:
// always admitted, signals cancellation to any active worker, then
// spawns its own homing task under a freshly occupied slot and returns
// immediately — mirroring Start's "admit, then go m.runWorker" shape, and
// the original's command_manager.py spawning _run_home on a daemon thread
// rather than blocking the caller for the full homing duration. Per
// spec.md §5, the preempted worker's own abortToHome and this homing task
// briefly run as two concurrent goroutines until the former exits; its
// releaseSlot is then a no-op, since the slot already holds this id.
func (m *Manager) InterruptAndHome(ctx context.Context) domain.RequestID {
	id := m.preemptAndOccupy()
	m.logger.InfoWithContext(ctx, "preempting active command for go home", map[string]interface{}{"request_id": string(id)})
	m.store.Create(id, domain.Status{State: domain.StateExecuting, Message: "Go home"})
	go m.runHome(id)
	return id
}

// runHome is InterruptAndHome's background worker. It runs detached from
// the originating request's context, the same reasoning that keeps
// runWorker off that context: the HTTP handler returns as soon as id is
// admitted, so a request-scoped ctx would be cancelled before homing
// finishes.
func (m *Manager) runHome(id domain.RequestID) {
	ctx, span := m.telemetry.StartSpan(context.Background(), "command.interrupt_and_home")
	defer span.End()
	span.SetAttribute("request_id", string(id))
	defer m.releaseSlot(id)

	if err := m.driver.Home(ctx); err != nil {
		m.store.Update(id, domain.Patch{State: domain.StateFailed, Message: err.Error()})
		span.RecordError(err)
		m.logger.Error("go home failed", map[string]interface{}{"request_id": string(id), "error": err.Error()})
		return
	}
	m.store.Update(id, domain.Patch{State: domain.StateSucceeded, Message: messageAtHome})
	m.logger.Info("go home completed", map[string]interface{}{"request_id": string(id)})
}

// Stop implements the supplemented emergency-stop operation: it calls
// ArmDriver.Stop directly, bypassing slot admission entirely, since an
// e-stop must take effect regardless of which (if any) command currently
// holds the slot — the original's arm_adapter.py probes a distinct
// stop()/estop()/halt() verb rather than routing through home().
func (m *Manager) Stop(ctx context.Context) error {
	m.logger.InfoWithContext(ctx, "emergency stop requested", nil)
	if err := m.driver.Stop(ctx); err != nil {
		m.logger.Error("emergency stop failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	m.logger.Info("emergency stop completed", nil)
	return nil
}

// preemptAndOccupy performs step 1-2 of interrupt_and_home: close the
// current cancel channel (a one-shot signal — closing is idempotent-safe
// here because we always replace it with a fresh channel under the same
// lock, so a racing second preemption never double-closes the same
// channel), then mint a new id and occupy the slot with it.
func (m *Manager) preemptAndOccupy() domain.RequestID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelCh != nil {
		close(m.cancelCh)
	}
	id := store.NewRequestID()
	m.active = &id
	m.cancelCh = make(chan struct{})
	return id
}
