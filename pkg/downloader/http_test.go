package downloader_test

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/kubev2v/transcription-api/pkg/command"
	"github.com/kubev2v/transcription-api/pkg/downloader"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("http downloader", func() {
	var (
		template string
		runner   *ffmpegRunner
	)

	BeforeEach(func() {
		template = filepath.Join(GinkgoT().TempDir(), "temp_1234_download")
		runner = &ffmpegRunner{}
	})

	It("downloads and transcodes an audio file", func() {
		handler := newHttpTestServerHandler("audio/wav", false)
		ts := httptest.NewServer(handler.getHandler())
		defer ts.Close()

		d := downloader.NewHttpDownloader("ffmpeg", runner)
		Expect(d.Supports(ts.URL)).To(BeTrue())

		err := d.Download(context.TODO(), ts.URL+"/talk.wav", template)
		Expect(err).To(BeNil())
		Expect(runner.input).To(Equal(handler.testData))
		Expect(downloader.OutputPath(template)).To(BeAnExistingFile())
		Expect(template).ToNot(BeAnExistingFile())
	})

	It("refuses a page that is not media", func() {
		handler := newHttpTestServerHandler("text/html; charset=utf-8", false)
		ts := httptest.NewServer(handler.getHandler())
		defer ts.Close()

		d := downloader.NewHttpDownloader("ffmpeg", runner)
		err := d.Download(context.TODO(), ts.URL, template)
		Expect(errors.Is(err, downloader.ErrNotMedia)).To(BeTrue())
		Expect(runner.called).To(BeFalse())
	})

	It("failed to download", func() {
		handler := newHttpTestServerHandler("audio/mpeg", true)
		ts := httptest.NewServer(handler.getHandler())
		defer ts.Close()

		d := downloader.NewHttpDownloader("ffmpeg", runner)
		err := d.Download(context.TODO(), ts.URL, template)
		Expect(err).ToNot(BeNil())
	})

	It("reports a transcode failure", func() {
		handler := newHttpTestServerHandler("video/mp4", false)
		ts := httptest.NewServer(handler.getHandler())
		defer ts.Close()

		runner.fail = true
		d := downloader.NewHttpDownloader("ffmpeg", runner)
		err := d.Download(context.TODO(), ts.URL, template)

		var cmdErr *command.Error
		Expect(errors.As(err, &cmdErr)).To(BeTrue())
		Expect(cmdErr.Stage).To(Equal("transcode"))
	})

	It("does not support other schemes", func() {
		d := downloader.NewHttpDownloader("ffmpeg", runner)
		Expect(d.Supports("s3://bucket/key.mp3")).To(BeFalse())
	})
})

type httpTestServerHandler struct {
	shouldReturnError bool
	contentType       string
	testData          []byte
}

func newHttpTestServerHandler(contentType string, shouldReturnError bool) *httpTestServerHandler {
	blk := make([]byte, 100)
	_, _ = rand.Read(blk)

	return &httpTestServerHandler{
		shouldReturnError: shouldReturnError,
		contentType:       contentType,
		testData:          blk,
	}
}

func (h *httpTestServerHandler) getHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.shouldReturnError {
			http.Error(w, "error", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", h.contentType)
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(h.testData)))
		_, _ = w.Write(h.testData)
	}
}

// ffmpegRunner copies the input to the output like a successful ffmpeg run would.
type ffmpegRunner struct {
	called bool
	fail   bool
	input  []byte
}

func (f *ffmpegRunner) Run(_ context.Context, name string, args ...string) (command.Result, error) {
	f.called = true
	if f.fail {
		return command.Result{ExitCode: 1, Stderr: "Invalid data found when processing input"}, errors.New("exit status 1")
	}

	in := args[2]
	out := args[len(args)-1]
	data, err := os.ReadFile(in)
	if err != nil {
		return command.Result{ExitCode: 1}, err
	}
	f.input = data
	return command.Result{}, os.WriteFile(out, data, 0600)
}
