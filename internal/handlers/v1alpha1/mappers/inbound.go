package mappers

import (
	api "github.com/kubev2v/transcription-api/api/v1alpha1"
	"github.com/kubev2v/transcription-api/internal/service"
)

func URLRequestFromApi(req api.TranscribeUrlRequest) service.URLRequest {
	out := service.URLRequest{URL: req.Url}
	if req.Language != nil {
		out.Language = *req.Language
	}
	return out
}
