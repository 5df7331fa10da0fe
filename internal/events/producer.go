package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kubev2v/transcription-api/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	TranscriptionCreatedKind   string = "transcription.created"
	TranscriptionCompletedKind string = "transcription.completed"
	TranscriptionFailedKind    string = "transcription.failed"
	TranscriptionDeletedKind   string = "transcription.deleted"
	defaultTopic               string = "transcription.events"
	defaultSource              string = "transcription-api"
	defaultMaxPending          int    = 1000
)

// Event is the envelope handed to the Writer.
type Event struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Type   string          `json:"type"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, topic string, e Event) error
	Close(ctx context.Context) error
}

// EventProducer stamps the envelope when an event is published and hands it to the
// Writer from its own goroutine, so publishers never wait on the sink.
type EventProducer struct {
	pending          *pendingQueue
	startConsumingCh chan any
	doneCh           chan any
	stoppedCh        chan any
	closeOnce        sync.Once
	writer           Writer
	topic            string
	source           string
	maxPending       int
}

func NewEventProducer(w Writer, opts ...ProducerOption) *EventProducer {
	ep := &EventProducer{
		startConsumingCh: make(chan any, 1),
		doneCh:           make(chan any),
		stoppedCh:        make(chan any),
		writer:           w,
		topic:            defaultTopic,
		source:           defaultSource,
		maxPending:       defaultMaxPending,
	}

	for _, o := range opts {
		o(ep)
	}
	ep.pending = newPendingQueue(ep.maxPending)

	go ep.run()
	return ep
}

// Write queues a kind event carrying body as its data. Id and time are set here,
// so they reflect the publish order even when the writer lags behind.
func (ep *EventProducer) Write(ctx context.Context, kind string, body io.Reader) error {
	d, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if !json.Valid(d) {
		return fmt.Errorf("event %s: data is not valid json", kind)
	}

	e := Event{
		ID:     uuid.NewString(),
		Source: ep.source,
		Type:   kind,
		Time:   time.Now().UTC(),
		Data:   json.RawMessage(d),
	}
	if evicted, ok := ep.pending.push(e); ok {
		metrics.IncreaseEventsDroppedMetric(evicted.Type)
		zap.S().Named("event_producer").Warnw("too many pending events, dropped the oldest", "id", evicted.ID, "event_type", evicted.Type, "max_pending", ep.maxPending)
	}

	// wake up the consumer without waiting for it
	select {
	case ep.startConsumingCh <- struct{}{}:
	default:
	}

	return nil
}

// Close flushes the pending events and closes the writer.
func (ep *EventProducer) Close() error {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(closeCtx)
	g.Go(func() error {
		ep.closeOnce.Do(func() { close(ep.doneCh) })
		select {
		case <-ep.stoppedCh:
		case <-ctx.Done():
			return ctx.Err()
		}
		return ep.writer.Close(ctx)
	})
	if err := g.Wait(); err != nil {
		zap.S().Named("event_producer").Errorw("event producer closed with error", "error", err)
		return err
	}

	zap.S().Named("event_producer").Info("event producer closed")

	return nil
}

func (ep *EventProducer) run() {
	defer close(ep.stoppedCh)

	for {
		e, ok := ep.pending.pop()
		if !ok {
			select {
			case <-ep.startConsumingCh:
				continue
			case <-ep.doneCh:
				// drain what was pushed before close
				if ep.pending.Len() > 0 {
					continue
				}
				return
			}
		}

		if err := ep.writer.Write(context.TODO(), ep.topic, e); err != nil {
			zap.S().Named("event_producer").Errorw("failed to send message", "error", err, "event_type", e.Type)
		}
	}
}
