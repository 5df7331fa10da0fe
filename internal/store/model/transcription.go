package model

import (
	"encoding/json"
	"time"
)

type TranscriptionStatus string

const (
	TranscriptionStatusProcessing TranscriptionStatus = "processing"
	TranscriptionStatusCompleted  TranscriptionStatus = "completed"
	TranscriptionStatusError      TranscriptionStatus = "error"
)

func (s TranscriptionStatus) IsTerminal() bool {
	return s == TranscriptionStatusCompleted || s == TranscriptionStatusError
}

// Segment is a timed span of transcribed text, offsets in seconds.
type Segment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens,omitempty"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

type Transcription struct {
	ID        string              `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	Status    TranscriptionStatus `gorm:"not null;type:VARCHAR(20);index:transcriptions_status_idx"`
	CreatedAt time.Time           `gorm:"not null;index:transcriptions_created_at_idx"`
	Filename  *string
	URL       *string
	Text      *string
	Segments  []Segment `gorm:"serializer:json"`
	Language  *string
	Duration  *float64
	Error     *string
}

type TranscriptionList []Transcription

func (t Transcription) String() string {
	val, _ := json.Marshal(t)
	return string(val)
}

// Copy returns a deep copy so callers never share slices or pointers with the store.
func (t Transcription) Copy() Transcription {
	c := t
	c.Filename = copyPtr(t.Filename)
	c.URL = copyPtr(t.URL)
	c.Text = copyPtr(t.Text)
	c.Language = copyPtr(t.Language)
	c.Duration = copyPtr(t.Duration)
	c.Error = copyPtr(t.Error)
	if t.Segments != nil {
		c.Segments = make([]Segment, len(t.Segments))
		for i, s := range t.Segments {
			c.Segments[i] = s
			if s.Tokens != nil {
				c.Segments[i].Tokens = append([]int(nil), s.Tokens...)
			}
		}
	}
	return c
}

// TranscriptionPatch holds the fields a worker writes when a job reaches a terminal state.
// Nil fields are left untouched.
type TranscriptionPatch struct {
	Status   *TranscriptionStatus
	Text     *string
	Segments []Segment
	Language *string
	Duration *float64
	Error    *string
}

// CompletedPatch builds the patch for a successful transcription.
func CompletedPatch(text string, segments []Segment, language string, duration *float64) TranscriptionPatch {
	status := TranscriptionStatusCompleted
	if segments == nil {
		segments = []Segment{}
	}
	return TranscriptionPatch{
		Status:   &status,
		Text:     &text,
		Segments: segments,
		Language: &language,
		Duration: copyPtr(duration),
	}
}

// FailedPatch builds the patch for a failed transcription.
func FailedPatch(message string) TranscriptionPatch {
	status := TranscriptionStatusError
	return TranscriptionPatch{
		Status: &status,
		Error:  &message,
	}
}

// Apply merges the patch into t. When the status becomes terminal the fields that belong
// to the other terminal state are cleared.
func (p TranscriptionPatch) Apply(t *Transcription) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Text != nil {
		t.Text = copyPtr(p.Text)
	}
	if p.Segments != nil {
		t.Segments = Transcription{Segments: p.Segments}.Copy().Segments
	}
	if p.Language != nil {
		t.Language = copyPtr(p.Language)
	}
	if p.Duration != nil {
		t.Duration = copyPtr(p.Duration)
	}
	if p.Error != nil {
		t.Error = copyPtr(p.Error)
	}

	switch t.Status {
	case TranscriptionStatusCompleted:
		t.Error = nil
		if t.Segments == nil {
			t.Segments = []Segment{}
		}
	case TranscriptionStatusError:
		t.Text = nil
		t.Segments = nil
		t.Language = nil
		t.Duration = nil
	}
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
