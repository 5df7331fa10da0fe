package v1alpha1

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	api "github.com/kubev2v/transcription-api/api/v1alpha1"
	"github.com/kubev2v/transcription-api/internal/handlers/v1alpha1/mappers"
	"github.com/kubev2v/transcription-api/internal/service"
	"go.uber.org/zap"
)

const (
	fileFormName     = "file"
	languageFormName = "language"
	maxFieldBytes    = 64
)

// (POST /api/transcribe)
func (h *ServiceHandler) TranscribeFile(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("transcription_handler")

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read multipart form: %v", err))
		return
	}

	// the query wins over the form field
	language := r.URL.Query().Get(languageFormName)

	for {
		part, err := reader.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			h.renderReadError(w, r, err)
			return
		}

		switch part.FormName() {
		case languageFormName:
			value, err := readField(part)
			if err != nil {
				h.renderReadError(w, r, err)
				return
			}
			if language == "" {
				language = value
			}
		case fileFormName:
			params := api.TranscribeFileParams{
				ContentType: part.Header.Get("Content-Type"),
				Language:    language,
			}
			if err := h.validator.Struct(params); err != nil {
				renderError(w, r, http.StatusBadRequest, err.Error())
				return
			}

			t, err := h.transcriptionSrv.CreateFromUpload(r.Context(), service.UploadRequest{
				Filename: part.FileName(),
				Language: language,
				Body:     part,
			})
			if err != nil {
				logger.Errorw("failed to create transcription", "error", err, "filename", part.FileName())
				h.renderServiceError(w, r, err)
				return
			}

			render.JSON(w, r, mappers.TranscriptionAcceptedToApi(*t))
			return
		}
		_ = part.Close()
	}

	renderError(w, r, http.StatusBadRequest, "file is required")
}

// (POST /api/transcribe-url)
func (h *ServiceHandler) TranscribeUrl(w http.ResponseWriter, r *http.Request) {
	var req api.TranscribeUrlRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.transcriptionSrv.CreateFromURL(r.Context(), mappers.URLRequestFromApi(req))
	if err != nil {
		zap.S().Named("transcription_handler").Errorw("failed to create transcription", "error", err, "url", req.Url)
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.TranscriptionAcceptedToApi(*t))
}

// (GET /api/transcriptions/{id})
func (h *ServiceHandler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	id, err := bindID(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.transcriptionSrv.GetTranscription(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.TranscriptionToApi(*t))
}

// (GET /api/transcriptions)
func (h *ServiceHandler) ListTranscriptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.transcriptionSrv.ListTranscriptions(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.TranscriptionListToApi(list))
}

// (DELETE /api/transcriptions/{id})
func (h *ServiceHandler) DeleteTranscription(w http.ResponseWriter, r *http.Request) {
	id, err := bindID(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.transcriptionSrv.DeleteTranscription(r.Context(), id); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, api.Status{Message: "Transcription deleted"})
}

func (h *ServiceHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch err.(type) {
	case *service.ErrResourceNotFound:
		renderError(w, r, http.StatusNotFound, err.Error())
	case *service.ErrInvalidRequest:
		renderError(w, r, http.StatusBadRequest, err.Error())
	case *service.ErrFileTooLarge:
		renderError(w, r, http.StatusRequestEntityTooLarge, err.Error())
	case *service.ErrServiceUnavailable:
		renderError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		renderError(w, r, http.StatusInternalServerError, err.Error())
	}
}

func (h *ServiceHandler) renderReadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		renderError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("request exceeds the upload limit of %d bytes", maxBytesErr.Limit))
		return
	}
	renderError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read multipart form: %v", err))
}

func readField(part *multipart.Part) (string, error) {
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxFieldBytes {
		return "", fmt.Errorf("field %q is too long", part.FormName())
	}
	return strings.TrimSpace(string(data)), nil
}
