package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kubev2v/transcription-api/internal/events"
	"github.com/kubev2v/transcription-api/internal/jobs"
	"github.com/kubev2v/transcription-api/internal/store"
	"github.com/kubev2v/transcription-api/internal/store/model"
	"github.com/kubev2v/transcription-api/pkg/whisper"
	"go.uber.org/zap"
)

const defaultUploadName = "upload"

// Scheduler runs tasks in the background, jobs.Pool implements it.
type Scheduler interface {
	Go(task jobs.Task) error
}

type UploadRequest struct {
	Filename string
	Language string
	Body     io.Reader
}

type URLRequest struct {
	URL      string
	Language string
}

type TranscriptionService struct {
	store         store.Store
	scheduler     Scheduler
	transcription *jobs.TranscriptionWorker
	acquisition   *jobs.AcquisitionWorker
	publisher     events.Publisher
	workDir       string
	log           *zap.SugaredLogger
}

func NewTranscriptionService(
	s store.Store,
	scheduler Scheduler,
	transcription *jobs.TranscriptionWorker,
	acquisition *jobs.AcquisitionWorker,
	publisher events.Publisher,
	workDir string,
) *TranscriptionService {
	return &TranscriptionService{
		store:         s,
		scheduler:     scheduler,
		transcription: transcription,
		acquisition:   acquisition,
		publisher:     publisher,
		workDir:       workDir,
		log:           zap.S().Named("transcription_service"),
	}
}

// UploadPath is where the bytes of an uploaded file are kept until the worker is done.
func UploadPath(workDir, id, filename string) string {
	return filepath.Join(workDir, fmt.Sprintf("temp_%s_%s", id, sanitizeFilename(filename)))
}

// CreateFromUpload persists the upload, creates the job and schedules its transcription.
// The job is created only once every byte is on disk.
func (s *TranscriptionService) CreateFromUpload(ctx context.Context, req UploadRequest) (*model.Transcription, error) {
	id := uuid.NewString()
	filename := sanitizeFilename(req.Filename)
	path := UploadPath(s.workDir, id, filename)

	if err := s.persist(path, req.Body); err != nil {
		_ = os.Remove(path)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, NewErrFileTooLarge(maxBytesErr.Limit)
		}
		s.log.Errorw("failed to persist upload", "job_id", id, "path", path, "error", err)
		return nil, NewErrUploadFailed(err)
	}

	language := normalizeLanguage(req.Language)
	created, err := s.store.Transcription().Create(ctx, model.Transcription{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Filename:  &filename,
	})
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	args := jobs.TranscriptionArgs{ID: id, FilePath: path, Language: language, Source: jobs.SourceUpload}
	if err := s.schedule(jobs.Task{
		JobID:   id,
		Kind:    jobs.TranscriptionKind,
		Work:    func(ctx context.Context) error { return s.transcription.Work(ctx, args) },
		Cleanup: func() { s.transcription.Cleanup(args) },
	}); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	s.log.Infow("transcription created", "job_id", id, "filename", filename, "language", language)
	events.PublishTranscription(ctx, s.publisher, events.TranscriptionCreatedKind, created)

	return created, nil
}

// CreateFromURL creates the job and schedules the download of the url.
func (s *TranscriptionService) CreateFromURL(ctx context.Context, req URLRequest) (*model.Transcription, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return nil, NewErrInvalidRequest("URL is required")
	}

	id := uuid.NewString()
	language := normalizeLanguage(req.Language)
	created, err := s.store.Transcription().Create(ctx, model.Transcription{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		URL:       &url,
	})
	if err != nil {
		return nil, err
	}

	args := jobs.AcquisitionArgs{ID: id, URL: url, Language: language}
	if err := s.schedule(jobs.Task{
		JobID:   id,
		Kind:    jobs.AcquisitionKind,
		Work:    func(ctx context.Context) error { return s.acquisition.Work(ctx, args) },
		Cleanup: func() { s.acquisition.Cleanup(args) },
	}); err != nil {
		return nil, err
	}

	s.log.Infow("transcription created", "job_id", id, "url", url, "language", language)
	events.PublishTranscription(ctx, s.publisher, events.TranscriptionCreatedKind, created)

	return created, nil
}

func (s *TranscriptionService) GetTranscription(ctx context.Context, id string) (*model.Transcription, error) {
	t, err := s.store.Transcription().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrTranscriptionNotFound(id)
		}
		return nil, err
	}
	return t, nil
}

func (s *TranscriptionService) ListTranscriptions(ctx context.Context) (model.TranscriptionList, error) {
	return s.store.Transcription().List(ctx, store.NewTranscriptionQueryFilter())
}

// DeleteTranscription removes the record only; a running worker finds it gone and drops its result.
func (s *TranscriptionService) DeleteTranscription(ctx context.Context, id string) error {
	t, err := s.store.Transcription().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrTranscriptionNotFound(id)
		}
		return err
	}

	if err := s.store.Transcription().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrTranscriptionNotFound(id)
		}
		return err
	}

	s.log.Infow("transcription deleted", "job_id", id, "status", t.Status)
	events.PublishTranscription(ctx, s.publisher, events.TranscriptionDeletedKind, t)

	return nil
}

// schedule hands the work to the scheduler. A job that cannot be scheduled is removed again
// so its id is never handed out.
func (s *TranscriptionService) schedule(task jobs.Task) error {
	err := s.scheduler.Go(task)
	if err == nil {
		return nil
	}

	s.log.Errorw("failed to schedule transcription", "job_id", task.JobID, "kind", task.Kind, "error", err)
	if delErr := s.store.Transcription().Delete(context.Background(), task.JobID); delErr != nil {
		s.log.Errorw("failed to remove unscheduled transcription", "job_id", task.JobID, "error", delErr)
	}
	return NewErrServiceUnavailable(err.Error())
}

func (s *TranscriptionService) persist(path string, body io.Reader) error {
	if body == nil {
		return errors.New("empty upload")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return err
	}

	// a failed close can mean lost bytes
	return f.Close()
}

func normalizeLanguage(language string) string {
	if whisper.IsAutoLanguage(language) {
		return ""
	}
	return strings.TrimSpace(language)
}

func sanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return defaultUploadName
	}
	return name
}
