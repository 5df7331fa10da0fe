package service

import (
	"context"

	"github.com/kubev2v/transcription-api/internal/store"
)

type HealthService struct {
	store store.Store
}

func NewHealthService(s store.Store) *HealthService {
	return &HealthService{store: s}
}

// Check reports whether the store answers.
func (h *HealthService) Check(ctx context.Context) error {
	_, err := h.store.Transcription().Count(ctx)
	return err
}
