// Package policy implements the PolicyProducer contract of spec.md §4.E:
// a pull-based, finite, non-restartable lazy sequence of ControlChunks,
// generalizing the "opaque producer iterator" design note (§9) into a Go
// interface with a single Next method rather than a generator/coroutine.
package policy

import (
	"context"
	"math"

	"github.com/HukkaMehu/LePetPal/internal/domain"
)

// Producer is the pull-based iterator CommandManager's worker drains.
// Next returns (chunk, true) while the sequence has more to say, and
// (zero, false) once exhausted. A Producer must not retain mutable state
// between calls to New for different prompts (spec.md §4.E, contract 2)
// — each call to a Factory returns a fresh, independent Producer.
type Producer interface {
	Next(ctx context.Context) (domain.ControlChunk, bool)
	// Close releases any resources the producer holds. Called exactly
	// once, whether the sequence ran to exhaustion or was abandoned
	// mid-stream by cooperative cancellation (spec.md §4.E, contract 3).
	Close()
}

// Factory builds a fresh Producer bound to one prompt and options blob.
// CommandManager calls this once per admitted "start" and discards the
// Producer at the end of the worker.
type Factory interface {
	New(prompt domain.Prompt, options map[string]interface{}) Producer
}

// scriptedPhase is one step of a deterministic phase list.
type scriptedPhase struct {
	phase      string
	targets    domain.Joints
	confidence float64
}

// scriptedPrograms maps each non-"go home" prompt to its fixed phase
// list. "go home" never reaches a Producer — CommandManager handles it
// directly via ArmDriver.Home (spec.md §4.G).
var scriptedPrograms = map[domain.Prompt][]scriptedPhase{
	domain.PromptPickUpBall: {
		{phase: "detect", targets: domain.Joints{0, 0, 0, 0, 0, 0}, confidence: 0.6},
		{phase: "approach", targets: domain.Joints{0.2, -0.2, 0.1, 0, 0.1, 0}, confidence: 0.75},
		{phase: "grasp", targets: domain.Joints{0.3, -0.4, 0.3, 0, 0.2, 0}, confidence: 0.85},
		{phase: "lift", targets: domain.Joints{0.3, -0.1, 0.1, 0, 0.1, 0}, confidence: 0.9},
		{phase: "ready_to_throw", targets: domain.Joints{0.1, 0.1, 0.05, 0, 0, 0}, confidence: 0.95},
	},
	domain.PromptGetTreat: {
		{phase: "detect", targets: domain.Joints{0, 0, 0, 0, 0, 0}, confidence: 0.6},
		{phase: "approach", targets: domain.Joints{-0.2, -0.2, 0.1, 0, -0.1, 0}, confidence: 0.75},
		{phase: "grasp", targets: domain.Joints{-0.3, -0.4, 0.3, 0, -0.2, 0}, confidence: 0.85},
		{phase: "drop", targets: domain.Joints{-0.1, -0.1, 0.1, 0, 0, 0}, confidence: 0.9},
	},
}

// ScriptedFactory builds ScriptedProducers, the MODEL_MODE=scripted
// family spec.md §6 calls "authoritative for tests".
type ScriptedFactory struct{}

// NewScriptedFactory builds a ScriptedFactory.
func NewScriptedFactory() *ScriptedFactory { return &ScriptedFactory{} }

// New returns a fresh ScriptedProducer for prompt. An unrecognized
// prompt (should not occur past façade validation) yields an
// already-exhausted producer.
func (f *ScriptedFactory) New(prompt domain.Prompt, _ map[string]interface{}) Producer {
	steps := scriptedPrograms[prompt]
	cp := make([]scriptedPhase, len(steps))
	copy(cp, steps)
	return &ScriptedProducer{steps: cp}
}

// ScriptedProducer deterministically replays a fixed phase list. It owns
// no goroutines or external resources, so Close is a no-op — but it is
// still wired into the interface to exercise the contract uniformly with
// producers that do hold resources.
type ScriptedProducer struct {
	steps []scriptedPhase
	idx   int
}

// Next returns the next scripted chunk, or (zero, false) once the phase
// list is exhausted. Every yielded target lies in [-pi, pi] (spec.md §8
// invariant 5) by construction of scriptedPrograms above.
func (p *ScriptedProducer) Next(ctx context.Context) (domain.ControlChunk, bool) {
	select {
	case <-ctx.Done():
		return domain.ControlChunk{}, false
	default:
	}
	if p.idx >= len(p.steps) {
		return domain.ControlChunk{}, false
	}
	s := p.steps[p.idx]
	p.idx++
	for _, t := range s.targets {
		if math.Abs(t) > math.Pi {
			// Guards the §8 invariant even if scriptedPrograms is edited
			// carelessly later; never expected to trigger.
			return domain.ControlChunk{}, false
		}
	}
	return domain.ControlChunk{Phase: s.phase, Targets: s.targets, Confidence: s.confidence}, true
}

// Close is a no-op for ScriptedProducer.
func (p *ScriptedProducer) Close() {}
