package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kubev2v/transcription-api/internal/store/model"
	"gorm.io/gorm"
)

type Transcription interface {
	InitialMigration(ctx context.Context) error
	Create(ctx context.Context, transcription model.Transcription) (*model.Transcription, error)
	Get(ctx context.Context, id string) (*model.Transcription, error)
	Update(ctx context.Context, id string, patch model.TranscriptionPatch) (*model.Transcription, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *TranscriptionQueryFilter) (model.TranscriptionList, error)
	Count(ctx context.Context) (map[model.TranscriptionStatus]int, error)
}

type TranscriptionStore struct {
	db *gorm.DB
}

// Make sure we conform to Transcription interface
var _ Transcription = (*TranscriptionStore)(nil)

func NewTranscriptionStore(db *gorm.DB) Transcription {
	return &TranscriptionStore{db: db}
}

func (s *TranscriptionStore) InitialMigration(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&model.Transcription{})
}

func (s *TranscriptionStore) Create(ctx context.Context, transcription model.Transcription) (*model.Transcription, error) {
	transcription = transcription.Copy()
	transcription.Status = model.TranscriptionStatusProcessing

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Transcription{}).Where("id = ?", transcription.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateKey
		}
		return tx.Create(&transcription).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		if errors.Is(err, ErrDuplicateKey) {
			return nil, err
		}
		return nil, fmt.Errorf("creating transcription: %w", err)
	}

	return &transcription, nil
}

func (s *TranscriptionStore) Get(ctx context.Context, id string) (*model.Transcription, error) {
	var transcription model.Transcription
	if err := s.db.WithContext(ctx).First(&transcription, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying transcription: %w", err)
	}
	return &transcription, nil
}

// Update reads, patches and writes the record inside one transaction.
func (s *TranscriptionStore) Update(ctx context.Context, id string, patch model.TranscriptionPatch) (*model.Transcription, error) {
	var updated model.Transcription

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Transcription
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		if err := validatePatch(current.Status, patch); err != nil {
			return err
		}

		patch.Apply(&current)
		if err := tx.Save(&current).Error; err != nil {
			return err
		}

		updated = current
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("updating transcription: %w", err)
	}

	return &updated, nil
}

func (s *TranscriptionStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&model.Transcription{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting transcription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *TranscriptionStore) List(ctx context.Context, filter *TranscriptionQueryFilter) (model.TranscriptionList, error) {
	var transcriptions model.TranscriptionList
	tx := filter.scope(s.db.WithContext(ctx).Model(&model.Transcription{}))
	if err := tx.Order("created_at, id").Find(&transcriptions).Error; err != nil {
		return nil, fmt.Errorf("listing transcriptions: %w", err)
	}
	return transcriptions, nil
}

func (s *TranscriptionStore) Count(ctx context.Context) (map[model.TranscriptionStatus]int, error) {
	var rows []struct {
		Status model.TranscriptionStatus
		Total  int
	}
	err := s.db.WithContext(ctx).
		Model(&model.Transcription{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting transcriptions: %w", err)
	}

	counts := make(map[model.TranscriptionStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
