package v1alpha1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	api "github.com/kubev2v/transcription-api/api/v1alpha1"
	"github.com/kubev2v/transcription-api/pkg/requestid"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"github.com/oapi-codegen/runtime"
)

// NewRequestValidator checks requests against the embedded api document before they reach a handler.
func NewRequestValidator() (func(http.Handler) http.Handler, error) {
	swagger, err := api.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load api document: %w", err)
	}
	// Skip server name validation
	swagger.Servers = nil

	oapiOpts := oapimiddleware.Options{
		ErrorHandler: oapiErrorHandler,
	}
	return oapimiddleware.OapiRequestValidatorWithOptions(swagger, &oapiOpts), nil
}

// the validator has no access to the request, the id comes from the header set by the request id middleware
func oapiErrorHandler(w http.ResponseWriter, message string, statusCode int) {
	body := api.Error{Message: fmt.Sprintf("API Error: %s", message)}
	if id := w.Header().Get(requestid.Header); id != "" {
		body.RequestId = &id
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func bindID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", fmt.Errorf("invalid format for parameter id: %w", err)
	}
	return id, nil
}
