package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kubev2v/transcription-api/pkg/downloader"
	"github.com/kubev2v/transcription-api/pkg/metrics"
	"go.uber.org/zap"
)

const errNoDownloadedFile = "download produced no file"

type AcquisitionWorker struct {
	workDir       string
	downloader    MediaDownloader
	transcription *TranscriptionWorker
	log           *zap.SugaredLogger
}

func NewAcquisitionWorker(workDir string, d MediaDownloader, transcription *TranscriptionWorker) *AcquisitionWorker {
	return &AcquisitionWorker{
		workDir:       workDir,
		downloader:    d,
		transcription: transcription,
		log:           zap.S().Named("acquisition_worker"),
	}
}

// DownloadTemplate is the path handed to the downloader for a job.
func DownloadTemplate(workDir, id string) string {
	return filepath.Join(workDir, fmt.Sprintf("%s%s_download", tempPrefix, id))
}

// Work downloads the url and hands the audio over to the transcription worker.
// Every file derived from the download template is removed on exit.
func (w *AcquisitionWorker) Work(ctx context.Context, args AcquisitionArgs) error {
	template := DownloadTemplate(w.workDir, args.ID)
	defer w.Cleanup(args)

	start := time.Now()
	w.log.Infow("downloading media", "job_id", args.ID, "url", args.URL)

	if err := w.downloader.Download(ctx, args.URL, template); err != nil {
		metrics.IncreaseDownloadsTotalMetric("failed")
		return w.transcription.recordFailure(ctx, args.ID, SourceURL, start, failureMessage(ctx, err))
	}

	audio := downloader.OutputPath(template)
	if _, err := os.Stat(audio); err != nil {
		metrics.IncreaseDownloadsTotalMetric("failed")
		return w.transcription.recordFailure(ctx, args.ID, SourceURL, start, errNoDownloadedFile)
	}
	metrics.IncreaseDownloadsTotalMetric("succeeded")

	return w.transcription.Work(ctx, TranscriptionArgs{
		ID:       args.ID,
		FilePath: audio,
		Language: args.Language,
		Source:   SourceURL,
	})
}

// Cleanup removes every file derived from the download template of the job.
func (w *AcquisitionWorker) Cleanup(args AcquisitionArgs) {
	removeTemplate(DownloadTemplate(w.workDir, args.ID))
}

func removeTemplate(template string) {
	removeFile(template)
	removeFile(downloader.OutputPath(template))

	// partial downloads, e.g. <template>.webm.part
	matches, err := filepath.Glob(template + "*")
	if err != nil {
		return
	}
	for _, m := range matches {
		removeFile(m)
	}
}
