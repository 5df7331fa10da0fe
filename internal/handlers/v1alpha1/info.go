package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"
	api "github.com/kubev2v/transcription-api/api/v1alpha1"
	"github.com/kubev2v/transcription-api/pkg/version"
)

// (GET /api)
func (h *ServiceHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()

	response := api.Info{
		Message: versionInfo.ServiceName,
		Version: versionInfo.GitVersion,
	}
	if versionInfo.GitCommit != "" {
		response.GitCommit = &versionInfo.GitCommit
	}

	render.JSON(w, r, response)
}

// (GET /health)
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.healthSrv.Check(r.Context()); err != nil {
		renderError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}
