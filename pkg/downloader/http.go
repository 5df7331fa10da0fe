package downloader

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/kubev2v/transcription-api/pkg/command"
)

// ErrNotMedia is returned when an http link does not point to an audio or video file.
var ErrNotMedia = errors.New("url does not point to an audio or video file")

type HttpDownloader struct {
	client     *http.Client
	runner     command.Runner
	ffmpegPath string
}

func NewHttpDownloader(ffmpegPath string, runner command.Runner) *HttpDownloader {
	return &HttpDownloader{
		client:     http.DefaultClient,
		runner:     runner,
		ffmpegPath: ffmpegPath,
	}
}

func (h *HttpDownloader) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (h *HttpDownloader) Download(ctx context.Context, rawURL string, template string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %q, status code: %d", rawURL, resp.StatusCode)
	}

	if !isMediaContentType(resp.Header.Get("Content-Type")) {
		return fmt.Errorf("%w: content type %q", ErrNotMedia, resp.Header.Get("Content-Type"))
	}

	totalSize := int64(0)
	n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err == nil {
		totalSize = n
	}

	if err := copyToFile(ctx, template, resp.Body, totalSize); err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(template)
	}()

	return Transcode(ctx, h.runner, h.ffmpegPath, template, OutputPath(template))
}

func (h *HttpDownloader) Type() string {
	return "http"
}

func isMediaContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "audio/") || strings.HasPrefix(mediaType, "video/")
}
