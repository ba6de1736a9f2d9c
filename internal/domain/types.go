// Package domain holds the core entities of the robot command control
// plane (spec.md §3): the prompt whitelist, control chunks, joint limits,
// and the request lifecycle. These types have no framework dependencies —
// every component (arm, safety, policy, store, command, httpapi) imports
// this package rather than each other, the same layering gomind uses
// between its core types and its modules.
package domain

import "fmt"

// Prompt is a member of the fixed, whitelisted command vocabulary.
type Prompt string

const (
	PromptPickUpBall Prompt = "pick up the ball"
	PromptGetTreat   Prompt = "get the treat"
	PromptGoHome     Prompt = "go home"
)

// ValidPrompts enumerates every prompt the façade accepts.
var ValidPrompts = map[Prompt]bool{
	PromptPickUpBall: true,
	PromptGetTreat:   true,
	PromptGoHome:     true,
}

// ParsePrompt validates a raw string against the whitelist.
func ParsePrompt(s string) (Prompt, error) {
	p := Prompt(s)
	if !ValidPrompts[p] {
		return "", fmt.Errorf("prompt %q is not in the whitelist", s)
	}
	return p, nil
}

// NumJoints is the follower arm's degree of freedom count (§1: "6-DOF").
const NumJoints = 6

// Joints is a fixed-size joint-space vector: targets, limits, or a
// commanded pose. Using an array (not a slice) makes "exactly 6 entries"
// a property of the type rather than a runtime check everywhere it's
// threaded through — only the wire boundary (JSON decode) needs to verify
// length.
type Joints [NumJoints]float64

// ControlChunk is one step of a PolicyProducer's output (spec.md §3,
// §4.E). It never outlives the worker goroutine that consumes it.
type ControlChunk struct {
	Phase      string
	Targets    Joints
	Confidence float64
}

// JointLimits is the pair of per-joint min/max vectors SafetyGate
// validates targets against (spec.md §3, §6). Immutable after load.
type JointLimits struct {
	Min Joints
	Max Joints
}

// DefaultJointLimits are the conservative defaults spec.md §6 mandates
// when no calibration file is supplied: "min=-2.5 rad, max=+2.5 rad".
func DefaultJointLimits() JointLimits {
	var limits JointLimits
	for i := range limits.Min {
		limits.Min[i] = -2.5
		limits.Max[i] = 2.5
	}
	return limits
}

// HomePose is the canonical neutral joint configuration (GLOSSARY: "Home
// pose"). All zeros unless a calibration supplies a different home —
// not modelled here per spec.md's Open Questions.
func HomePose() Joints {
	return Joints{}
}
