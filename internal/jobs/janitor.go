package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kubev2v/transcription-api/internal/store"
	"github.com/kubev2v/transcription-api/internal/store/model"
	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

// Janitor removes temporary files left in the work dir by jobs that are no longer processing.
type Janitor struct {
	store    store.Store
	workDir  string
	interval time.Duration
	maxAge   time.Duration
	log      *zap.SugaredLogger
}

func NewJanitor(s store.Store, workDir string, interval, maxAge time.Duration) *Janitor {
	return &Janitor{
		store:    s,
		workDir:  workDir,
		interval: interval,
		maxAge:   maxAge,
		log:      zap.S().Named("janitor"),
	}
}

func (j *Janitor) Run(ctx context.Context) {
	ticker := jitterbug.New(j.interval, &jitterbug.Norm{Stdev: j.interval / 10, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.log.Warnw("failed to sweep work dir", "work_dir", j.workDir, "error", err)
			}
		}
	}
}

// Sweep removes the stale files once and returns how many were removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(j.workDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil || time.Since(info.ModTime()) < j.maxAge {
			continue
		}

		if j.ownerIsProcessing(ctx, entry.Name()) {
			continue
		}

		path := filepath.Join(j.workDir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			j.log.Warnw("failed to remove stale file", "path", path, "error", err)
			continue
		}
		j.log.Infow("removed stale file", "path", path, "age", time.Since(info.ModTime()))
		removed++
	}

	return removed, nil
}

func (j *Janitor) ownerIsProcessing(ctx context.Context, name string) bool {
	rest := strings.TrimPrefix(name, tempPrefix)
	if len(rest) < 36 {
		return false
	}
	id, err := uuid.Parse(rest[:36])
	if err != nil {
		return false
	}

	t, err := j.store.Transcription().Get(ctx, id.String())
	if err != nil {
		// unknown job, or a store error where keeping the file is the safe choice
		return !errors.Is(err, store.ErrRecordNotFound)
	}
	return t.Status == model.TranscriptionStatusProcessing
}
