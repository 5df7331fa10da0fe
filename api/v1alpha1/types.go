package v1alpha1

import (
	"github.com/go-openapi/strfmt"
)

type TranscriptionStatus string

const (
	TranscriptionStatusProcessing TranscriptionStatus = "processing"
	TranscriptionStatusCompleted  TranscriptionStatus = "completed"
	TranscriptionStatusError      TranscriptionStatus = "error"
)

// Info defines model for Info.
type Info struct {
	Message   string  `json:"message"`
	Version   string  `json:"version"`
	GitCommit *string `json:"git_commit,omitempty"`
}

// Status defines model for Status.
type Status struct {
	Message string `json:"message"`
}

// Error defines model for Error.
type Error struct {
	// Message Error message
	Message string `json:"message"`

	// RequestId Request ID for tracking
	RequestId *string `json:"request_id,omitempty"`
}

// Segment defines model for Segment.
type Segment struct {
	Id               int     `json:"id"`
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

// Transcription defines model for Transcription.
type Transcription struct {
	Id        string              `json:"id"`
	Status    TranscriptionStatus `json:"status"`
	CreatedAt strfmt.DateTime     `json:"created_at"`
	Filename  *string             `json:"filename,omitempty"`
	Url       *string             `json:"url,omitempty"`
	Text      *string             `json:"text,omitempty"`
	Segments  *[]Segment          `json:"segments,omitempty"`
	Language  *string             `json:"language,omitempty"`
	Duration  *float64            `json:"duration,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

// TranscriptionList defines model for TranscriptionList.
type TranscriptionList = []Transcription

// TranscriptionAccepted is returned as soon as a job is created.
type TranscriptionAccepted struct {
	Id        string              `json:"id"`
	Status    TranscriptionStatus `json:"status"`
	CreatedAt strfmt.DateTime     `json:"created_at"`
}

// TranscribeUrlRequest defines model for TranscribeUrlRequest.
type TranscribeUrlRequest struct {
	Url      string  `json:"url" validate:"required"`
	Language *string `json:"language,omitempty" validate:"omitempty,language"`
}

// TranscribeFileParams are the non file fields of an upload.
type TranscribeFileParams struct {
	ContentType string `validate:"media_type"`
	Language    string `validate:"omitempty,language"`
}
