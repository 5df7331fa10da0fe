package downloader_test

import (
	"context"
	"errors"

	"github.com/kubev2v/transcription-api/pkg/command"
	"github.com/kubev2v/transcription-api/pkg/downloader"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingRunner struct {
	name   string
	args   []string
	result command.Result
	err    error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (command.Result, error) {
	r.name = name
	r.args = args
	return r.result, r.err
}

var _ = Describe("yt-dlp downloader", func() {
	It("extracts the best audio as mp3", func() {
		runner := &recordingRunner{}
		d := downloader.NewYtDlpDownloader("yt-dlp", "ffmpeg", runner)

		err := d.Download(context.TODO(), "https://www.youtube.com/watch?v=abc", "/tmp/temp_1234_download")
		Expect(err).To(BeNil())
		Expect(runner.name).To(Equal("yt-dlp"))
		Expect(runner.args).To(ContainElements("bestaudio/best", "-x", "mp3", "192K"))
		Expect(runner.args).To(ContainElement("/tmp/temp_1234_download.%(ext)s"))
		Expect(runner.args).ToNot(ContainElement("--ffmpeg-location"))
		Expect(runner.args[len(runner.args)-1]).To(Equal("https://www.youtube.com/watch?v=abc"))
	})

	It("reports the yt-dlp error", func() {
		runner := &recordingRunner{
			result: command.Result{ExitCode: 1, Stderr: "ERROR: [youtube] abc: Video unavailable"},
			err:    errors.New("exit status 1"),
		}
		d := downloader.NewYtDlpDownloader("yt-dlp", "", runner)

		err := d.Download(context.TODO(), "https://www.youtube.com/watch?v=abc", "/tmp/temp_1234_download")
		Expect(err).To(MatchError(ContainSubstring("Video unavailable")))
	})

	It("supports web urls only", func() {
		d := downloader.NewYtDlpDownloader("yt-dlp", "", &recordingRunner{})
		Expect(d.Supports("https://vimeo.com/1")).To(BeTrue())
		Expect(d.Supports("s3://bucket/key")).To(BeFalse())
		Expect(d.Supports("not a url")).To(BeFalse())
	})
})

var _ = Describe("minio downloader", func() {
	It("supports s3 object urls only", func() {
		d, err := downloader.NewMinioDownloader(downloader.WithEndpoint("localhost:9000"))
		Expect(err).To(BeNil())
		Expect(d.Supports("s3://media/talks/keynote.mp4")).To(BeTrue())
		Expect(d.Supports("s3://media")).To(BeFalse())
		Expect(d.Supports("https://example.com/a.mp3")).To(BeFalse())
		Expect(d.Type()).To(Equal("minio"))
	})
})
