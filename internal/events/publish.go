package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/kubev2v/transcription-api/internal/store/model"
	"go.uber.org/zap"
)

// Publisher is what producers of events need, EventProducer implements it.
type Publisher interface {
	Write(ctx context.Context, kind string, body io.Reader) error
}

func NewTranscriptionEvent(t *model.Transcription) TranscriptionEvent {
	ev := TranscriptionEvent{
		ID:        t.ID,
		Status:    string(t.Status),
		Timestamp: time.Now().UTC(),
	}
	if t.Filename != nil {
		ev.Filename = *t.Filename
	}
	if t.URL != nil {
		ev.URL = *t.URL
	}
	if t.Language != nil {
		ev.Language = *t.Language
	}
	if t.Error != nil {
		ev.Error = *t.Error
	}
	return ev
}

// PublishTranscription never fails the caller, a lost event is only logged.
func PublishTranscription(ctx context.Context, p Publisher, kind string, t *model.Transcription) {
	if p == nil || t == nil {
		return
	}

	data, err := json.Marshal(NewTranscriptionEvent(t))
	if err != nil {
		zap.S().Named("events").Errorw("failed to marshal event", "error", err, "event_kind", kind)
		return
	}

	if err := p.Write(ctx, kind, bytes.NewReader(data)); err != nil {
		zap.S().Named("events").Errorw("failed to write event", "error", err, "event_kind", kind)
	}
}
