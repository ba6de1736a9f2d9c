// Package speaker implements the Speaker contract of spec.md §4.C: enqueue
// and play a short text utterance.
package speaker

import (
	"context"
	"fmt"

	"github.com/HukkaMehu/LePetPal/internal/platform"
)

// MaxUtteranceLen bounds /speak's text field at the boundary (spec.md
// §4.C: "text is non-empty and <= N chars").
const MaxUtteranceLen = 500

// Speaker hands an utterance to a synthesis backend. Implementations are
// not required to block until audio playback finishes.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// MockSpeaker logs the utterance instead of driving a TTS backend.
type MockSpeaker struct {
	logger platform.Logger
}

// NewMockSpeaker builds a Speaker with no physical audio output.
func NewMockSpeaker(logger platform.Logger) *MockSpeaker {
	if logger == nil {
		logger = platform.NoOpLogger{}
	}
	return &MockSpeaker{logger: logger}
}

// Speak validates bounds and "hands off" the utterance.
func (s *MockSpeaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("%w: text must not be empty", platform.ErrInvalidInput)
	}
	if len(text) > MaxUtteranceLen {
		return fmt.Errorf("%w: text exceeds %d characters", platform.ErrInvalidInput, MaxUtteranceLen)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", platform.ErrTTS, ctx.Err())
	default:
	}
	s.logger.Info("speaking", map[string]interface{}{"text": text})
	return nil
}
