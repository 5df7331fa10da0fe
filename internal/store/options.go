package store

import (
	"github.com/kubev2v/transcription-api/internal/store/model"
	"github.com/thoas/go-funk"
	"gorm.io/gorm"
)

// TranscriptionQueryFilter is understood by both store backends.
type TranscriptionQueryFilter struct {
	statuses []model.TranscriptionStatus
}

func NewTranscriptionQueryFilter() *TranscriptionQueryFilter {
	return &TranscriptionQueryFilter{}
}

func (f *TranscriptionQueryFilter) ByStatus(statuses ...model.TranscriptionStatus) *TranscriptionQueryFilter {
	f.statuses = append(f.statuses, statuses...)
	return f
}

func (f *TranscriptionQueryFilter) scope(tx *gorm.DB) *gorm.DB {
	if f == nil || len(f.statuses) == 0 {
		return tx
	}
	return tx.Where("status IN ?", f.statuses)
}

func (f *TranscriptionQueryFilter) matches(t *model.Transcription) bool {
	if f == nil || len(f.statuses) == 0 {
		return true
	}
	return funk.Contains(f.statuses, t.Status)
}
