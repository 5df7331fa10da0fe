package store

import (
	"context"
	"fmt"

	"github.com/kubev2v/transcription-api/internal/config"
	"gorm.io/gorm"
)

type Store interface {
	Transcription() Transcription
	InitialMigration(ctx context.Context) error
	Close() error
}

// New builds the store selected by the configuration.
func New(cfg *config.Config) (Store, error) {
	switch cfg.Store.Type {
	case config.StoreTypeMemory, "":
		return NewMemoryStore(), nil
	case config.StoreTypeSqlite:
		db, err := InitDB(cfg)
		if err != nil {
			return nil, err
		}
		return NewStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

type DataStore struct {
	db            *gorm.DB
	transcription Transcription
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:            db,
		transcription: NewTranscriptionStore(db),
	}
}

func (s *DataStore) Transcription() Transcription {
	return s.transcription
}

func (s *DataStore) InitialMigration(ctx context.Context) error {
	return s.transcription.InitialMigration(ctx)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
