package store

import (
	"context"
	"sync"

	"github.com/kubev2v/transcription-api/internal/store/model"
)

// MemoryStore keeps transcriptions in a mutex guarded map. Records are copied on the way
// in and out so no caller ever holds a live reference.
type MemoryStore struct {
	transcription *memoryTranscriptionStore
}

func NewMemoryStore() Store {
	return &MemoryStore{
		transcription: &memoryTranscriptionStore{
			records: make(map[string]*model.Transcription),
		},
	}
}

func (m *MemoryStore) Transcription() Transcription {
	return m.transcription
}

func (m *MemoryStore) InitialMigration(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

type memoryTranscriptionStore struct {
	mu      sync.RWMutex
	records map[string]*model.Transcription
	order   []string
}

var _ Transcription = (*memoryTranscriptionStore)(nil)

func (s *memoryTranscriptionStore) InitialMigration(_ context.Context) error {
	return nil
}

func (s *memoryTranscriptionStore) Create(_ context.Context, transcription model.Transcription) (*model.Transcription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.records[transcription.ID]; found {
		return nil, ErrDuplicateKey
	}

	record := transcription.Copy()
	record.Status = model.TranscriptionStatusProcessing
	s.records[record.ID] = &record
	s.order = append(s.order, record.ID)

	out := record.Copy()
	return &out, nil
}

func (s *memoryTranscriptionStore) Get(_ context.Context, id string) (*model.Transcription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, found := s.records[id]
	if !found {
		return nil, ErrRecordNotFound
	}

	out := record.Copy()
	return &out, nil
}

func (s *memoryTranscriptionStore) Update(_ context.Context, id string, patch model.TranscriptionPatch) (*model.Transcription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, found := s.records[id]
	if !found {
		return nil, ErrRecordNotFound
	}

	if err := validatePatch(record.Status, patch); err != nil {
		return nil, err
	}

	// patch a copy and swap it in, a reader never sees a half applied record
	updated := record.Copy()
	patch.Apply(&updated)
	s.records[id] = &updated

	out := updated.Copy()
	return &out, nil
}

func (s *memoryTranscriptionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.records[id]; !found {
		return ErrRecordNotFound
	}

	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memoryTranscriptionStore) List(_ context.Context, filter *TranscriptionQueryFilter) (model.TranscriptionList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make(model.TranscriptionList, 0, len(s.order))
	for _, id := range s.order {
		record := s.records[id]
		if !filter.matches(record) {
			continue
		}
		list = append(list, record.Copy())
	}
	return list, nil
}

func (s *memoryTranscriptionStore) Count(_ context.Context) (map[model.TranscriptionStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.TranscriptionStatus]int)
	for _, record := range s.records {
		counts[record.Status]++
	}
	return counts, nil
}
