package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/kubev2v/transcription-api/internal/events"
	"github.com/kubev2v/transcription-api/internal/store"
	"github.com/kubev2v/transcription-api/internal/store/model"
	"go.uber.org/zap"
)

// MarkFailed returns a FailureHook moving the job to the error state when it is still processing.
func MarkFailed(s store.Store, publisher events.Publisher) FailureHook {
	return func(jobID string, cause error) {
		// the pool context may be gone already
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		updated, err := s.Transcription().Update(ctx, jobID, model.FailedPatch(cause.Error()))
		switch {
		case err == nil:
			events.PublishTranscription(ctx, publisher, events.TranscriptionFailedKind, updated)
		case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrRecordNotFound):
			// already terminal or deleted
		default:
			zap.S().Named("worker_pool").Errorw("failed to mark transcription as failed", "job_id", jobID, "error", err)
		}
	}
}
