package store

import (
	"fmt"

	"github.com/kubev2v/transcription-api/internal/store/model"
)

// validatePatch enforces processing -> completed and processing -> error as the only
// transitions, and keeps result and error fields tied to their terminal state.
func validatePatch(current model.TranscriptionStatus, patch model.TranscriptionPatch) error {
	if current.IsTerminal() {
		return fmt.Errorf("%w: transcription is already %s", ErrInvalidTransition, current)
	}

	hasResult := patch.Text != nil || patch.Segments != nil || patch.Language != nil || patch.Duration != nil

	target := current
	if patch.Status != nil {
		target = *patch.Status
	}

	switch target {
	case model.TranscriptionStatusCompleted:
		if patch.Error != nil {
			return fmt.Errorf("%w: completed transcription cannot carry an error", ErrInvalidTransition)
		}
		if patch.Text == nil {
			return fmt.Errorf("%w: completed transcription requires text", ErrInvalidTransition)
		}
	case model.TranscriptionStatusError:
		if hasResult {
			return fmt.Errorf("%w: failed transcription cannot carry results", ErrInvalidTransition)
		}
		if patch.Error == nil {
			return fmt.Errorf("%w: failed transcription requires an error", ErrInvalidTransition)
		}
	case model.TranscriptionStatusProcessing:
		if hasResult || patch.Error != nil {
			return fmt.Errorf("%w: processing transcription cannot carry results", ErrInvalidTransition)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}

	return nil
}
