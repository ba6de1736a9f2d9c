package arm

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/platform"
)

func TestMockDriver_ConnectAlwaysSucceeds(t *testing.T) {
	d := NewMockDriver("rad", nil)
	ok, err := d.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMockDriver_SendTargetsUpdatesJointAngles(t *testing.T) {
	d := NewMockDriver("rad", nil)
	targets := domain.Joints{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	err := d.SendTargets(context.Background(), domain.ControlChunk{Targets: targets})
	require.NoError(t, err)
	assert.Equal(t, targets, d.JointAngles())
}

func TestMockDriver_HomeReturnsToZero(t *testing.T) {
	d := NewMockDriver("rad", nil)
	_ = d.SendTargets(context.Background(), domain.ControlChunk{Targets: domain.Joints{1, 1, 1, 1, 1, 1}})
	require.NoError(t, d.Home(context.Background()))
	assert.Equal(t, domain.HomePose(), d.JointAngles())
}

func TestMockDriver_SendTargetsCancelled(t *testing.T) {
	d := NewMockDriver("rad", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.SendTargets(ctx, domain.ControlChunk{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockDriver_DegModeConvertsDisplayJointsButNotJointAngles(t *testing.T) {
	d := NewMockDriver("deg", nil)
	targets := domain.Joints{math.Pi, 0, 0, 0, 0, 0}

	require.NoError(t, d.SendTargets(context.Background(), domain.ControlChunk{Targets: targets}))
	assert.Equal(t, targets, d.JointAngles(), "JointAngles is always radians regardless of jointUnits")
	assert.InDelta(t, 180.0, d.displayJoints(targets)[0], 1e-9)
}

func TestMockDriver_DegModeLogsConvertedPose(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := platform.NewProductionLogger("robotd", "debug", "text")
	logger.SetOutput(buf)

	d := NewMockDriver("deg", logger)
	require.NoError(t, d.Home(context.Background()))

	assert.True(t, strings.Contains(buf.String(), "unit=deg"))
}

func TestMockDriver_ThrowMacroCompletes(t *testing.T) {
	d := NewMockDriver("rad", nil)
	require.NoError(t, d.ThrowMacro(context.Background()))
}

func TestSerialDriver_DisconnectedWithoutPort(t *testing.T) {
	d := NewSerialDriver("", nil)
	ok, err := d.Connect(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSerialDriver_FailsClosedWithPort(t *testing.T) {
	d := NewSerialDriver("/dev/ttyUSB0", nil)
	_, err := d.Connect(context.Background())
	assert.Error(t, err)

	err = d.SendTargets(context.Background(), domain.ControlChunk{})
	assert.Error(t, err, "never connected, so every operation must fail closed")
}
