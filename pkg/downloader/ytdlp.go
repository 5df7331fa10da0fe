package downloader

import (
	"context"
	"net/url"
	"path/filepath"

	"github.com/kubev2v/transcription-api/pkg/command"
)

// YtDlpDownloader extracts the best audio stream of any page yt-dlp understands.
type YtDlpDownloader struct {
	path       string
	ffmpegPath string
	runner     command.Runner
}

func NewYtDlpDownloader(path, ffmpegPath string, runner command.Runner) *YtDlpDownloader {
	return &YtDlpDownloader{path: path, ffmpegPath: ffmpegPath, runner: runner}
}

func (y *YtDlpDownloader) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (y *YtDlpDownloader) Download(ctx context.Context, rawURL string, template string) error {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"-o", template + ".%(ext)s",
	}
	if filepath.IsAbs(y.ffmpegPath) {
		args = append(args, "--ffmpeg-location", y.ffmpegPath)
	}
	args = append(args, rawURL)

	res, err := y.runner.Run(ctx, y.path, args...)
	if err != nil {
		return command.NewError("download", y.path, res, err)
	}

	return nil
}

func (y *YtDlpDownloader) Type() string {
	return "yt-dlp"
}
