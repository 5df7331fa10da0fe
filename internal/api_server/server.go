package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kubev2v/transcription-api/internal/config"
	handlers "github.com/kubev2v/transcription-api/internal/handlers/v1alpha1"
	"github.com/kubev2v/transcription-api/internal/service"
	"github.com/kubev2v/transcription-api/pkg/log"
	"github.com/kubev2v/transcription-api/pkg/metrics"
	"github.com/kubev2v/transcription-api/pkg/middleware"
	"go.uber.org/zap"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

// the default registry refuses a second registration of the same collectors
var apiMetrics = sync.OnceValue(func() *metrics.Middleware {
	m := metrics.NewMiddleware("api_server")
	m.MustRegisterDefault()
	return m
})

type Server struct {
	cfg              *config.Config
	listener         net.Listener
	transcriptionSrv *service.TranscriptionService
	healthSrv        *service.HealthService
}

// New returns a new instance of a transcription api server.
func New(
	cfg *config.Config,
	listener net.Listener,
	transcriptionSrv *service.TranscriptionService,
	healthSrv *service.HealthService,
) *Server {
	return &Server{
		cfg:              cfg,
		listener:         listener,
		transcriptionSrv: transcriptionSrv,
		healthSrv:        healthSrv,
	}
}

// Router builds the full handler tree: api routes first, static frontend as fallback.
func (s *Server) Router() (http.Handler, error) {
	requestValidator, err := handlers.NewRequestValidator()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	router.Use(
		apiMetrics().Handler,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	h := handlers.NewServiceHandler(s.transcriptionSrv, s.healthSrv, s.cfg.Service.MaxUploadBytes)
	h.RegisterApi(router, requestValidator)

	if static := staticHandler(s.cfg.Service.StaticDir); static != nil {
		router.Handle("/*", static)
	}

	return router, nil
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	handler, err := s.Router()
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	srv := http.Server{
		Addr:     s.cfg.Service.Address,
		Handler:  handler,
		ErrorLog: log.StdLogger("api_server"),
	}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// staticHandler serves the exported frontend. It returns nil when the directory is missing
// so unmatched routes fall through to a plain 404.
func staticHandler(dir string) http.Handler {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		zap.S().Named("api_server").Infow("static directory not found, frontend disabled", "dir", dir)
		return nil
	}

	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// exported pages are written as <route>.html
		if p := filepath.Clean(r.URL.Path); p != "/" && filepath.Ext(p) == "" {
			if _, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(p, "/")+".html")); err == nil {
				r.URL.Path = p + ".html"
			}
		}
		fs.ServeHTTP(w, r)
	})
}
