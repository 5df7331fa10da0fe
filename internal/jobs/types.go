package jobs

import (
	"context"
	"time"
)

const (
	DefaultJobTimeout = 2 * time.Hour

	SourceUpload = "upload"
	SourceURL    = "url"

	TranscriptionKind = "transcription"
	AcquisitionKind   = "acquisition"

	tempPrefix = "temp_"
)

type TranscriptionArgs struct {
	ID       string
	FilePath string
	Language string
	// Source is either SourceUpload or SourceURL.
	Source string
}

type AcquisitionArgs struct {
	ID       string
	URL      string
	Language string
}

// MediaDownloader leaves the mp3 at downloader.OutputPath(template) on success.
type MediaDownloader interface {
	Download(ctx context.Context, url string, template string) error
}
