package policy

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HukkaMehu/LePetPal/internal/domain"
)

func TestScriptedProducer_TargetsWithinPi(t *testing.T) {
	f := NewScriptedFactory()
	for _, prompt := range []domain.Prompt{domain.PromptPickUpBall, domain.PromptGetTreat} {
		p := f.New(prompt, nil)
		ctx := context.Background()
		count := 0
		for {
			chunk, ok := p.Next(ctx)
			if !ok {
				break
			}
			count++
			for _, target := range chunk.Targets {
				assert.LessOrEqual(t, math.Abs(target), math.Pi)
			}
		}
		assert.Greater(t, count, 0, "prompt %s should yield at least one chunk", prompt)
		p.Close()
	}
}

func TestScriptedProducer_Exhausts(t *testing.T) {
	p := NewScriptedFactory().New(domain.PromptGetTreat, nil)
	ctx := context.Background()
	for {
		_, ok := p.Next(ctx)
		if !ok {
			break
		}
	}
	_, ok := p.Next(ctx)
	assert.False(t, ok, "exhausted producer must keep returning false")
}

func TestScriptedProducer_IsFreshPerPrompt(t *testing.T) {
	f := NewScriptedFactory()
	a := f.New(domain.PromptPickUpBall, nil)
	b := f.New(domain.PromptPickUpBall, nil)

	ctx := context.Background()
	chunkA, _ := a.Next(ctx)
	_, _ = b.Next(ctx)
	chunkB, _ := b.Next(ctx)

	assert.NotEqual(t, chunkA, chunkB, "each producer tracks its own cursor independently")
}

func TestScriptedProducer_UnrecognizedPromptYieldsNothing(t *testing.T) {
	p := NewScriptedFactory().New(domain.PromptGoHome, nil)
	_, ok := p.Next(context.Background())
	assert.False(t, ok)
}
