package downloader

import (
	"context"
	"os"

	"github.com/kubev2v/transcription-api/pkg/command"
)

// Transcode converts any media ffmpeg understands into a 192k mp3.
func Transcode(ctx context.Context, runner command.Runner, ffmpegPath, in, out string) error {
	res, err := runner.Run(ctx, ffmpegPath,
		"-y",
		"-i", in,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", "192k",
		out,
	)
	if err != nil {
		return command.NewError("transcode", ffmpegPath, res, err)
	}

	if _, err := os.Stat(out); err != nil {
		return command.NewError("transcode", ffmpegPath, res, err)
	}

	return nil
}
