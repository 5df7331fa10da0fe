package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/kubev2v/transcription-api/internal/api_server"
	"github.com/kubev2v/transcription-api/internal/config"
	"github.com/kubev2v/transcription-api/internal/events"
	"github.com/kubev2v/transcription-api/internal/jobs"
	"github.com/kubev2v/transcription-api/internal/service"
	"github.com/kubev2v/transcription-api/internal/store"
	"github.com/kubev2v/transcription-api/pkg/command"
	"github.com/kubev2v/transcription-api/pkg/downloader"
	"github.com/kubev2v/transcription-api/pkg/log"
	"github.com/kubev2v/transcription-api/pkg/metrics"
	"github.com/kubev2v/transcription-api/pkg/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the transcription api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting API service...")
		zap.S().Infof("Using config: %s", cfg)
		defer zap.S().Info("API service stopped")

		if err := os.MkdirAll(cfg.Service.WorkDir, 0o750); err != nil {
			zap.S().Fatalw("creating work directory", "error", err, "dir", cfg.Service.WorkDir)
		}

		zap.S().Info("Initializing data store")
		s, err := store.New(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}
		defer s.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		if err := s.InitialMigration(ctx); err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		if err := metrics.RegisterJobsCollector(s); err != nil {
			zap.S().Fatalw("registering jobs collector", "error", err)
		}

		producer := newEventProducer(cfg)
		defer func() {
			if err := producer.Close(); err != nil {
				zap.S().Errorw("failed to close event producer", "error", err)
			}
		}()

		runner := command.NewExecRunner()
		transcriber := whisper.NewCLI(
			cfg.Whisper.Path,
			whisper.WithRunner(runner),
			whisper.WithModel(cfg.Whisper.Model),
			whisper.WithFFprobe(cfg.Whisper.FFprobePath),
		)

		pool := jobs.NewPool(
			cfg.Worker.MaxWorkers,
			jobs.WithJobTimeout(cfg.Worker.JobTimeout),
			jobs.WithFailureHook(jobs.MarkFailed(s, producer)),
		)

		tw := jobs.NewTranscriptionWorker(s, transcriber, producer)
		aw := jobs.NewAcquisitionWorker(cfg.Service.WorkDir, newDownloaderManager(cfg, runner), tw)
		transcriptionSrv := service.NewTranscriptionService(s, pool, tw, aw, producer, cfg.Service.WorkDir)

		go jobs.NewJanitor(s, cfg.Service.WorkDir, cfg.Worker.JanitorInterval, cfg.Worker.JanitorMaxAge).Run(ctx)

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, listener, transcriptionSrv, service.NewHealthService(s))
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("failed to run metrics server", "error", err)
			}
		}()

		<-ctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
		defer stopCancel()
		if err := pool.Stop(stopCtx); err != nil {
			zap.S().Warnw("workers did not stop in time", "error", err)
		}

		return nil
	},
}

func newEventProducer(cfg *config.Config) *events.EventProducer {
	if !cfg.Service.EventsEnabled {
		return events.NewEventProducer(&events.NoopWriter{})
	}
	return events.NewEventProducer(
		&events.StdoutWriter{},
		events.WithOutputTopic(cfg.Service.EventsTopic),
		events.WithMaxPending(cfg.Service.EventsMaxPending),
	)
}

// newDownloaderManager registers the object store first so s3 urls never reach yt-dlp.
func newDownloaderManager(cfg *config.Config, runner command.Runner) *downloader.Manager {
	md := downloader.NewDownloaderManager()

	if cfg.Downloader.S3.Endpoint != "" {
		minio, err := downloader.NewMinioDownloader(
			downloader.WithEndpoint(cfg.Downloader.S3.Endpoint),
			downloader.WithAccessKey(cfg.Downloader.S3.AccessKey),
			downloader.WithSecretKey(cfg.Downloader.S3.SecretKey),
			downloader.WithSSL(cfg.Downloader.S3.UseSSL),
			downloader.WithFFmpeg(cfg.Downloader.FFmpegPath, runner),
		)
		if err == nil {
			md.Register(minio)
		} else {
			zap.S().Errorw("failed to create minio downloader", "error", err)
		}
	}

	md.Register(downloader.NewHttpDownloader(cfg.Downloader.FFmpegPath, runner))
	md.Register(downloader.NewYtDlpDownloader(cfg.Downloader.YtDlpPath, cfg.Downloader.FFmpegPath, runner))

	return md
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
