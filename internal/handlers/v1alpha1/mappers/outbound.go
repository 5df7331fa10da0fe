package mappers

import (
	"github.com/go-openapi/strfmt"
	api "github.com/kubev2v/transcription-api/api/v1alpha1"
	"github.com/kubev2v/transcription-api/internal/store/model"
)

func TranscriptionToApi(t model.Transcription) api.Transcription {
	out := api.Transcription{
		Id:        t.ID,
		Status:    api.TranscriptionStatus(t.Status),
		CreatedAt: strfmt.DateTime(t.CreatedAt),
		Filename:  t.Filename,
		Url:       t.URL,
		Text:      t.Text,
		Language:  t.Language,
		Duration:  t.Duration,
		Error:     t.Error,
	}

	// completed jobs always carry segments, even an empty list
	if t.Segments != nil {
		segments := make([]api.Segment, 0, len(t.Segments))
		for _, s := range t.Segments {
			segments = append(segments, SegmentToApi(s))
		}
		out.Segments = &segments
	}

	return out
}

func TranscriptionListToApi(list model.TranscriptionList) api.TranscriptionList {
	out := make(api.TranscriptionList, 0, len(list))
	for _, t := range list {
		out = append(out, TranscriptionToApi(t))
	}
	return out
}

func SegmentToApi(s model.Segment) api.Segment {
	return api.Segment{
		Id:               s.ID,
		Seek:             s.Seek,
		Start:            s.Start,
		End:              s.End,
		Text:             s.Text,
		Tokens:           s.Tokens,
		Temperature:      s.Temperature,
		AvgLogprob:       s.AvgLogprob,
		CompressionRatio: s.CompressionRatio,
		NoSpeechProb:     s.NoSpeechProb,
	}
}

func TranscriptionAcceptedToApi(t model.Transcription) api.TranscriptionAccepted {
	return api.TranscriptionAccepted{
		Id:        t.ID,
		Status:    api.TranscriptionStatus(t.Status),
		CreatedAt: strfmt.DateTime(t.CreatedAt),
	}
}
