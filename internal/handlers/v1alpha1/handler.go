package v1alpha1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	api "github.com/kubev2v/transcription-api/api/v1alpha1"
	"github.com/kubev2v/transcription-api/internal/handlers/validator"
	"github.com/kubev2v/transcription-api/internal/service"
	"github.com/kubev2v/transcription-api/pkg/requestid"
)

type ServiceHandler struct {
	transcriptionSrv *service.TranscriptionService
	healthSrv        *service.HealthService
	validator        *validator.Validator
	maxUploadBytes   int64
}

func NewServiceHandler(transcriptionSrv *service.TranscriptionService, healthSrv *service.HealthService, maxUploadBytes int64) *ServiceHandler {
	v := validator.NewValidator()
	v.Register(validator.NewTranscriptionValidationRules()...)

	return &ServiceHandler{
		transcriptionSrv: transcriptionSrv,
		healthSrv:        healthSrv,
		validator:        v,
		maxUploadBytes:   maxUploadBytes,
	}
}

// RegisterApi mounts every api route on the router. requestValidator may be nil.
func (h *ServiceHandler) RegisterApi(r chi.Router, requestValidator func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.GetInfo)
		// uploads are streamed to disk, the multipart body is checked part by part in the handler
		r.Post("/transcribe", h.TranscribeFile)

		r.Group(func(r chi.Router) {
			if requestValidator != nil {
				r.Use(requestValidator)
			}
			r.Post("/transcribe-url", h.TranscribeUrl)
			r.Get("/transcriptions", h.ListTranscriptions)
			r.Get("/transcriptions/{id}", h.GetTranscription)
			r.Delete("/transcriptions/{id}", h.DeleteTranscription)
		})
	})
	r.Get("/health", h.Health)
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := api.Error{Message: message}
	if id := requestid.FromRequest(r); id != "" {
		body.RequestId = &id
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}
