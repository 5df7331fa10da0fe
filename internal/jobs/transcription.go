package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kubev2v/transcription-api/internal/events"
	"github.com/kubev2v/transcription-api/internal/store"
	"github.com/kubev2v/transcription-api/internal/store/model"
	"github.com/kubev2v/transcription-api/pkg/metrics"
	"github.com/kubev2v/transcription-api/pkg/whisper"
	"go.uber.org/zap"
)

type TranscriptionWorker struct {
	store       store.Store
	transcriber whisper.Transcriber
	publisher   events.Publisher
	log         *zap.SugaredLogger
}

func NewTranscriptionWorker(s store.Store, transcriber whisper.Transcriber, publisher events.Publisher) *TranscriptionWorker {
	return &TranscriptionWorker{
		store:       s,
		transcriber: transcriber,
		publisher:   publisher,
		log:         zap.S().Named("transcription_worker"),
	}
}

// Work transcribes the file and records the outcome. The input file is removed on every path.
// Collaborator failures are recorded on the job, only store failures are returned.
func (w *TranscriptionWorker) Work(ctx context.Context, args TranscriptionArgs) error {
	defer w.Cleanup(args)

	start := time.Now()
	result, err := w.transcriber.Transcribe(ctx, args.FilePath, args.Language)
	if err != nil {
		return w.recordFailure(ctx, args.ID, args.Source, start, failureMessage(ctx, err))
	}

	patch := model.CompletedPatch(result.Text, result.Segments, result.Language, result.Duration)
	updated, err := w.store.Transcription().Update(context.WithoutCancel(ctx), args.ID, patch)
	if err != nil {
		return w.handleUpdateError(args.ID, err)
	}

	metrics.IncreaseJobsTotalMetric(args.Source, string(model.TranscriptionStatusCompleted))
	metrics.ObserveJobDuration(args.Source, time.Since(start).Seconds())
	w.log.Infow("transcription completed", "job_id", args.ID, "language", result.Language, "segments", len(result.Segments), "duration", time.Since(start))
	events.PublishTranscription(ctx, w.publisher, events.TranscriptionCompletedKind, updated)

	return nil
}

// Cleanup removes the input file of the job. The pool runs it even when Work never started.
func (w *TranscriptionWorker) Cleanup(args TranscriptionArgs) {
	removeFile(args.FilePath)
}

func (w *TranscriptionWorker) recordFailure(ctx context.Context, id, source string, start time.Time, message string) error {
	if message == "" {
		message = "transcription failed"
	}

	updated, err := w.store.Transcription().Update(context.WithoutCancel(ctx), id, model.FailedPatch(message))
	if err != nil {
		return w.handleUpdateError(id, err)
	}

	metrics.IncreaseJobsTotalMetric(source, string(model.TranscriptionStatusError))
	metrics.ObserveJobDuration(source, time.Since(start).Seconds())
	w.log.Warnw("transcription failed", "job_id", id, "error", message)
	events.PublishTranscription(ctx, w.publisher, events.TranscriptionFailedKind, updated)

	return nil
}

func (w *TranscriptionWorker) handleUpdateError(id string, err error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		w.log.Infow("transcription deleted while processing", "job_id", id)
		return nil
	}
	return fmt.Errorf("failed to record outcome of %s: %w", id, err)
}

func failureMessage(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("timed out: %s", err)
	}
	return err.Error()
}

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		zap.S().Named("transcription_worker").Warnw("failed to remove file", "path", path, "error", err)
	}
}
