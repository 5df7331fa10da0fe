package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Downloader fetches the media behind a URL and leaves an mp3 at OutputPath(template).
type Downloader interface {
	Download(ctx context.Context, url string, template string) error
	Supports(url string) bool
	Type() string
}

// OutputPath is the file a successful download leaves behind.
func OutputPath(template string) string {
	return template + ".mp3"
}

type Manager struct {
	downloaders map[int]Downloader // keep them in the order of the registration
}

func NewDownloaderManager() *Manager {
	return &Manager{
		downloaders: map[int]Downloader{},
	}
}

func (m *Manager) Register(downloader Downloader) *Manager {
	m.downloaders[len(m.downloaders)] = downloader
	return m
}

// Download tries every downloader supporting the url in registration order until one succeeds.
func (m *Manager) Download(ctx context.Context, url string, template string) error {
	var errs []error
	for i := 0; i < len(m.downloaders); i++ {
		downloader := m.downloaders[i]
		if !downloader.Supports(url) {
			continue
		}

		zap.S().Named("downloader").Infow("downloading media", "downloader_type", downloader.Type(), "url", url)

		if err := downloader.Download(ctx, url, template); err != nil {
			zap.S().Named("downloader").Errorw("failed to download media", "error", err, "downloader_type", downloader.Type(), "url", url)
			errs = append(errs, err)
			removeLeftovers(template)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		return nil
	}

	if len(errs) == 0 {
		return fmt.Errorf("no downloader supports %q", url)
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

func removeLeftovers(template string) {
	_ = os.Remove(template)
	_ = os.Remove(OutputPath(template))
}

// wrapper is a wrapper around the io.Writer to get metrics about download progress.
type wrapper struct {
	downloadedBytes atomic.Int64
	total           int64
	w               io.Writer
}

func newWrapper(ctx context.Context, w io.Writer, totalBytesToDownload int64) *wrapper {
	mw := &wrapper{w: w, total: totalBytesToDownload}
	go mw.start(ctx)

	return mw
}

func (m *wrapper) start(ctx context.Context) {
	oldValue := int64(0)
	ticker := time.NewTicker(10 * time.Second)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return
		case <-ticker.C:
			downloaded := m.downloadedBytes.Load()
			if m.total <= 0 {
				progress := fmt.Sprintf("%.2f Mb", float32(downloaded)/(1024*1024))
				zap.S().Named("downloader").Debugw("media downloading", "progress", progress)
				continue
			}

			progress := fmt.Sprintf("%.2f%%", 100*(float32(downloaded)/float32(m.total)))
			rate := fmt.Sprintf("%.2f MB/s", (float32(downloaded)-float32(oldValue))/(1024*1024*10))
			zap.S().Named("downloader").Debugw("media downloading", "progress", progress, "rate", rate)
			oldValue = downloaded
		}
	}
}

func (m *wrapper) Write(p []byte) (n int, err error) {
	n, err = m.w.Write(p)
	if err == nil {
		m.downloadedBytes.Add(int64(n))
	}
	return
}

func (m *wrapper) complete() error {
	if m.total > 0 && m.total != m.downloadedBytes.Load() {
		return fmt.Errorf("failed to download the entire file. expected bytes %d received %d", m.total, m.downloadedBytes.Load())
	}
	return nil
}

// copyToFile streams src into path and reports progress while doing so.
func copyToFile(ctx context.Context, path string, src io.Reader, total int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	newCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	mw := newWrapper(newCtx, f, total)

	if _, err := io.Copy(mw, src); err != nil {
		return err
	}

	return mw.complete()
}
