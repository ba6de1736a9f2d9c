package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrompt(t *testing.T) {
	p, err := ParsePrompt("pick up the ball")
	assert.NoError(t, err)
	assert.Equal(t, PromptPickUpBall, p)

	_, err = ParsePrompt("dance")
	assert.Error(t, err)
}

func TestDefaultJointLimits(t *testing.T) {
	limits := DefaultJointLimits()
	for i := 0; i < NumJoints; i++ {
		assert.Equal(t, -2.5, limits.Min[i])
		assert.Equal(t, 2.5, limits.Max[i])
	}
}

func TestHomePose(t *testing.T) {
	assert.Equal(t, Joints{}, HomePose())
}
