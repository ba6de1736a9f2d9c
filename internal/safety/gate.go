// Package safety implements the SafetyGate contract of spec.md §4.D: two
// query-only methods and one validator, guarding every target chunk the
// worker sends to the arm.
package safety

import (
	"encoding/json"
	"math"
	"os"
	"sync"

	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/platform"
)

// calibrationFile mirrors the JSON shape spec.md §6 defines:
// {"joint_min":[f64;6], "joint_max":[f64;6], "roi":{...}?}. ROI is opaque
// here — workspace_clear() only needs to know whether one was configured.
// JointMin/JointMax are pointers so an omitted field can be told apart from
// an all-zero one.
type calibrationFile struct {
	JointMin *[domain.NumJoints]float64 `json:"joint_min"`
	JointMax *[domain.NumJoints]float64 `json:"joint_max"`
	ROI      json.RawMessage            `json:"roi,omitempty"`
}

// Gate is the SafetyGate surface CommandManager's worker depends on.
type Gate interface {
	ValidateTargets(chunk domain.ControlChunk) bool
	ReadyToThrow(joints domain.Joints) bool
	WorkspaceClear() bool
}

// JointGate is the reference SafetyGate: calibration-backed joint limits,
// a fixed "third joint near zero" pre-throw posture check, and a
// constant-valued workspace_clear stub (spec.md §4.D: "returns a
// configured constant").
type JointGate struct {
	mu              sync.RWMutex
	limits          domain.JointLimits
	workspaceClear  bool
	readyThirdJoint float64 // tolerance band around 0 for joint index 2
	logger          platform.Logger
}

// readyToThrowTolerance is the "near zero" band spec.md §4.D leaves
// unquantified; 0.15 rad (~8.6deg) matches the scripted producer's
// ready_to_throw waypoint in internal/policy.
const readyToThrowTolerance = 0.15

// NewJointGate loads calibration from calibrationPath if non-empty,
// falling back to domain.DefaultJointLimits() on a missing file or
// decode error, and keeping the default for whichever of joint_min /
// joint_max the file omits. workspaceClear is the constant §4.D calls for; it is
// configuration, not a live ROI check.
func NewJointGate(calibrationPath string, workspaceClear bool, logger platform.Logger) *JointGate {
	if logger == nil {
		logger = platform.NoOpLogger{}
	}
	g := &JointGate{
		limits:          domain.DefaultJointLimits(),
		workspaceClear:  workspaceClear,
		readyThirdJoint: readyToThrowTolerance,
		logger:          logger,
	}
	if calibrationPath == "" {
		return g
	}
	data, err := os.ReadFile(calibrationPath)
	if err != nil {
		logger.Warn("calibration file unreadable, using defaults", map[string]interface{}{"path": calibrationPath, "error": err.Error()})
		return g
	}
	var cal calibrationFile
	if err := json.Unmarshal(data, &cal); err != nil {
		logger.Warn("calibration file malformed, using defaults", map[string]interface{}{"path": calibrationPath, "error": err.Error()})
		return g
	}
	if cal.JointMin != nil {
		g.limits.Min = domain.Joints(*cal.JointMin)
	}
	if cal.JointMax != nil {
		g.limits.Max = domain.Joints(*cal.JointMax)
	}
	logger.Info("calibration loaded", map[string]interface{}{"path": calibrationPath})
	return g
}

// ValidateTargets reports whether every target lies within [min[i], max[i]].
// spec.md §4.D: "true iff chunk.targets has exactly 6 entries" — the
// domain.Joints array type already guarantees the entry count, so only
// the range check remains here.
func (g *JointGate) ValidateTargets(chunk domain.ControlChunk) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for i, t := range chunk.Targets {
		if t < g.limits.Min[i] || t > g.limits.Max[i] {
			return false
		}
	}
	return true
}

// ReadyToThrow is a domain check on a canonical pre-throw posture: joint
// index 2 (the elbow/wrist-adjacent joint used by the scripted producer's
// "ready_to_throw" phase) near zero.
func (g *JointGate) ReadyToThrow(joints domain.Joints) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return math.Abs(joints[2]) <= g.readyThirdJoint
}

// WorkspaceClear returns the configured constant (spec.md §4.D).
func (g *JointGate) WorkspaceClear() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.workspaceClear
}
