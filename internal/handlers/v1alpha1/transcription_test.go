package v1alpha1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	api "github.com/kubev2v/transcription-api/api/v1alpha1"
	"github.com/kubev2v/transcription-api/internal/handlers/v1alpha1"
	"github.com/kubev2v/transcription-api/internal/jobs"
	"github.com/kubev2v/transcription-api/internal/service"
	"github.com/kubev2v/transcription-api/internal/store"
	"github.com/kubev2v/transcription-api/internal/store/model"
	"github.com/kubev2v/transcription-api/pkg/whisper"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubTranscriber struct {
	lock      sync.Mutex
	languages []string
	err       error
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ string, language string) (*whisper.Result, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.languages = append(s.languages, language)
	if s.err != nil {
		return nil, s.err
	}
	detected := language
	if whisper.IsAutoLanguage(language) {
		detected = "en"
	}
	return &whisper.Result{
		Text:     "hello world",
		Segments: []model.Segment{{ID: 0, Start: 0, End: 1.5, Text: "hello world"}},
		Language: detected,
	}, nil
}

type stubDownloader struct {
	err error
}

func (d *stubDownloader) Download(_ context.Context, _ string, template string) error {
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(template+".mp3", []byte("audio"), 0o600)
}

type stoppedScheduler struct{}

func (stoppedScheduler) Go(jobs.Task) error {
	return jobs.ErrPoolStopped
}

func newUploadRequest(target, filename, contentType string, content []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		part, err := writer.CreatePart(header)
		Expect(err).To(BeNil())
		_, err = part.Write(content)
		Expect(err).To(BeNil())
	}
	Expect(writer.Close()).To(BeNil())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newURLRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe-url", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var _ = Describe("transcription handlers", func() {
	var (
		s           store.Store
		pool        *jobs.Pool
		transcriber *stubTranscriber
		downloader  *stubDownloader
		router      chi.Router
		workDir     string
		maxUpload   int64
		scheduler   service.Scheduler
	)

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	getJob := func(id string) api.Transcription {
		rec := serve(httptest.NewRequest(http.MethodGet, "/api/transcriptions/"+id, nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		var t api.Transcription
		Expect(json.Unmarshal(rec.Body.Bytes(), &t)).To(BeNil())
		return t
	}

	buildRouter := func() {
		tw := jobs.NewTranscriptionWorker(s, transcriber, nil)
		aw := jobs.NewAcquisitionWorker(workDir, downloader, tw)
		srv := service.NewTranscriptionService(s, scheduler, tw, aw, nil, workDir)
		h := v1alpha1.NewServiceHandler(srv, service.NewHealthService(s), maxUpload)
		requestValidator, err := v1alpha1.NewRequestValidator()
		Expect(err).To(BeNil())
		router = chi.NewRouter()
		h.RegisterApi(router, requestValidator)
	}

	BeforeEach(func() {
		s = store.NewMemoryStore()
		transcriber = &stubTranscriber{}
		downloader = &stubDownloader{}
		workDir = GinkgoT().TempDir()
		maxUpload = 1 << 20
		pool = jobs.NewPool(2, jobs.WithFailureHook(jobs.MarkFailed(s, nil)))
		scheduler = pool
		buildRouter()
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(pool.Stop(ctx)).To(BeNil())
	})

	Context("info", func() {
		It("returns the service name and version", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/api", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var info api.Info
			Expect(json.Unmarshal(rec.Body.Bytes(), &info)).To(BeNil())
			Expect(info.Message).To(Equal("Modern Transcription API"))
			Expect(info.Version).To(Equal("1.0.0"))
		})

		It("reports health", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/health", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Context("upload", func() {
		It("accepts an audio file and completes the job", func() {
			rec := serve(newUploadRequest("/api/transcribe", "speech.mp3", "audio/mpeg", []byte("fake audio")))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var accepted api.TranscriptionAccepted
			Expect(json.Unmarshal(rec.Body.Bytes(), &accepted)).To(BeNil())
			Expect(accepted.Id).NotTo(BeEmpty())
			Expect(accepted.Status).To(Equal(api.TranscriptionStatusProcessing))

			Eventually(func() api.TranscriptionStatus {
				return getJob(accepted.Id).Status
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(api.TranscriptionStatusCompleted))

			t := getJob(accepted.Id)
			Expect(*t.Filename).To(Equal("speech.mp3"))
			Expect(*t.Text).To(Equal("hello world"))
			Expect(*t.Language).To(Equal("en"))
			Expect(t.Segments).NotTo(BeNil())
			Expect(*t.Segments).To(HaveLen(1))
			Expect(t.Error).To(BeNil())

			entries, err := os.ReadDir(workDir)
			Expect(err).To(BeNil())
			Expect(entries).To(BeEmpty())
		})

		It("passes the language query parameter to the transcriber", func() {
			rec := serve(newUploadRequest("/api/transcribe?language=fr", "speech.wav", "audio/wav", []byte("x")))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var accepted api.TranscriptionAccepted
			Expect(json.Unmarshal(rec.Body.Bytes(), &accepted)).To(BeNil())
			Eventually(func() api.TranscriptionStatus {
				return getJob(accepted.Id).Status
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(api.TranscriptionStatusCompleted))

			transcriber.lock.Lock()
			defer transcriber.lock.Unlock()
			Expect(transcriber.languages).To(ConsistOf("fr"))
		})

		It("rejects a non media file without creating a job", func() {
			rec := serve(newUploadRequest("/api/transcribe", "notes.txt", "text/plain", []byte("hello")))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var body api.Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(BeNil())
			Expect(body.Message).To(ContainSubstring("Unsupported file type: text/plain"))

			list, err := s.Transcription().List(context.TODO(), store.NewTranscriptionQueryFilter())
			Expect(err).To(BeNil())
			Expect(list).To(BeEmpty())
		})

		It("rejects a request without a file", func() {
			rec := serve(newUploadRequest("/api/transcribe", "", "", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a body that is not multipart", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader("{}"))
			req.Header.Set("Content-Type", "application/json")
			rec := serve(req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an upload over the limit", func() {
			maxUpload = 512
			buildRouter()

			rec := serve(newUploadRequest("/api/transcribe", "big.mp3", "audio/mpeg", bytes.Repeat([]byte("a"), 4096)))
			Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))

			list, err := s.Transcription().List(context.TODO(), store.NewTranscriptionQueryFilter())
			Expect(err).To(BeNil())
			Expect(list).To(BeEmpty())
		})

		It("rejects an invalid language", func() {
			rec := serve(newUploadRequest("/api/transcribe?language=not-a-language!", "speech.mp3", "audio/mpeg", []byte("x")))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("records a transcriber failure on the job", func() {
			transcriber.err = errors.New("whisper exploded")

			rec := serve(newUploadRequest("/api/transcribe", "speech.mp3", "audio/mpeg", []byte("x")))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var accepted api.TranscriptionAccepted
			Expect(json.Unmarshal(rec.Body.Bytes(), &accepted)).To(BeNil())
			Eventually(func() api.TranscriptionStatus {
				return getJob(accepted.Id).Status
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(api.TranscriptionStatusError))

			t := getJob(accepted.Id)
			Expect(*t.Error).To(ContainSubstring("whisper exploded"))
			Expect(t.Text).To(BeNil())
			Expect(t.Segments).To(BeNil())
		})

		It("returns 503 when the pool is stopped", func() {
			scheduler = stoppedScheduler{}
			buildRouter()

			rec := serve(newUploadRequest("/api/transcribe", "speech.mp3", "audio/mpeg", []byte("x")))
			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

			list, err := s.Transcription().List(context.TODO(), store.NewTranscriptionQueryFilter())
			Expect(err).To(BeNil())
			Expect(list).To(BeEmpty())
		})
	})

	Context("url", func() {
		It("downloads and transcribes the media", func() {
			rec := serve(newURLRequest(`{"url":"https://www.youtube.com/watch?v=abc","language":"de"}`))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var accepted api.TranscriptionAccepted
			Expect(json.Unmarshal(rec.Body.Bytes(), &accepted)).To(BeNil())
			Expect(accepted.Status).To(Equal(api.TranscriptionStatusProcessing))

			Eventually(func() api.TranscriptionStatus {
				return getJob(accepted.Id).Status
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(api.TranscriptionStatusCompleted))

			t := getJob(accepted.Id)
			Expect(*t.Url).To(Equal("https://www.youtube.com/watch?v=abc"))
			Expect(t.Filename).To(BeNil())
			Expect(*t.Language).To(Equal("de"))
		})

		It("records a download failure on the job", func() {
			downloader.err = errors.New("video unavailable")

			rec := serve(newURLRequest(`{"url":"https://example.com/missing"}`))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var accepted api.TranscriptionAccepted
			Expect(json.Unmarshal(rec.Body.Bytes(), &accepted)).To(BeNil())
			Eventually(func() api.TranscriptionStatus {
				return getJob(accepted.Id).Status
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(api.TranscriptionStatusError))
			Expect(*getJob(accepted.Id).Error).To(ContainSubstring("video unavailable"))
		})

		It("rejects a missing url", func() {
			rec := serve(newURLRequest(`{"language":"en"}`))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var body api.Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(BeNil())
			Expect(body.Message).To(ContainSubstring("url"))
		})

		It("rejects malformed json", func() {
			rec := serve(newURLRequest(`{"url":`))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		DescribeTable("rejects request bodies that do not match the api document",
			func(body string, contentType string) {
				req := httptest.NewRequest(http.MethodPost, "/api/transcribe-url", strings.NewReader(body))
				if contentType != "" {
					req.Header.Set("Content-Type", contentType)
				}
				rec := serve(req)
				Expect(rec.Code).To(Equal(http.StatusBadRequest))

				var apiErr api.Error
				Expect(json.Unmarshal(rec.Body.Bytes(), &apiErr)).To(BeNil())
				Expect(apiErr.Message).To(HavePrefix("API Error:"))

				list, err := s.Transcription().List(context.TODO(), nil)
				Expect(err).To(BeNil())
				Expect(list).To(BeEmpty())
			},
			Entry("empty url", `{"url":""}`, "application/json"),
			Entry("url of the wrong type", `{"url":5}`, "application/json"),
			Entry("language of the wrong type", `{"url":"https://example.com/a.mp3","language":3}`, "application/json"),
			Entry("missing content type", `{"url":"https://example.com/a.mp3"}`, ""),
			Entry("form body", `url=https://example.com/a.mp3`, "application/x-www-form-urlencoded"),
		)

		It("accepts a null language", func() {
			rec := serve(newURLRequest(`{"url":"https://example.com/a.mp3","language":null}`))
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("maps a blank url refused by the service to 400", func() {
			rec := serve(newURLRequest(`{"url":"   "}`))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var body api.Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(BeNil())
			Expect(body.Message).To(Equal("URL is required"))
		})
	})

	Context("queries", func() {
		It("returns 404 for an unknown job", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/api/transcriptions/does-not-exist", nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))

			var body api.Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(BeNil())
			Expect(body.Message).To(ContainSubstring("not found"))
		})

		It("lists jobs in creation order", func() {
			var ids []string
			for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
				rec := serve(newUploadRequest("/api/transcribe", name, "audio/mpeg", []byte("x")))
				Expect(rec.Code).To(Equal(http.StatusOK))
				var accepted api.TranscriptionAccepted
				Expect(json.Unmarshal(rec.Body.Bytes(), &accepted)).To(BeNil())
				ids = append(ids, accepted.Id)
			}

			rec := serve(httptest.NewRequest(http.MethodGet, "/api/transcriptions", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var list api.TranscriptionList
			Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(BeNil())
			Expect(list).To(HaveLen(3))
			for i, t := range list {
				Expect(t.Id).To(Equal(ids[i]))
			}
		})

		It("returns an empty array when there are no jobs", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/api/transcriptions", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(strings.TrimSpace(rec.Body.String())).To(Equal("[]"))
		})

		It("deletes a job once", func() {
			rec := serve(newURLRequest(`{"url":"https://example.com/a.mp3"}`))
			Expect(rec.Code).To(Equal(http.StatusOK))
			var accepted api.TranscriptionAccepted
			Expect(json.Unmarshal(rec.Body.Bytes(), &accepted)).To(BeNil())

			rec = serve(httptest.NewRequest(http.MethodDelete, "/api/transcriptions/"+accepted.Id, nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			var status api.Status
			Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(BeNil())
			Expect(status.Message).To(Equal("Transcription deleted"))

			rec = serve(httptest.NewRequest(http.MethodGet, "/api/transcriptions/"+accepted.Id, nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))

			rec = serve(httptest.NewRequest(http.MethodDelete, "/api/transcriptions/"+accepted.Id, nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})
})
