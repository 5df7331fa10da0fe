package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreTypeMemory = "memory"
	StoreTypeSqlite = "sqlite"
)

var singleConfig *Config = nil

type Config struct {
	Service    *svcConfig
	Store      *storeConfig
	Worker     *workerConfig
	Whisper    *whisperConfig
	Downloader *downloaderConfig
}

type storeConfig struct {
	Type string `envconfig:"TRANSCRIBER_STORE_TYPE" default:"memory"`
	// Name is only used by the sqlite store and always points to an in-memory database.
	Name string `envconfig:"TRANSCRIBER_STORE_NAME" default:"file:transcriptions?mode=memory&cache=shared"`
}

type svcConfig struct {
	Address          string        `envconfig:"TRANSCRIBER_ADDRESS" default:":8000"`
	MetricsAddress   string        `envconfig:"TRANSCRIBER_METRICS_ADDRESS" default:":8080"`
	LogLevel         string        `envconfig:"TRANSCRIBER_LOG_LEVEL" default:"info"`
	StaticDir        string        `envconfig:"TRANSCRIBER_STATIC_DIR" default:"frontend/out"`
	WorkDir          string        `envconfig:"TRANSCRIBER_WORK_DIR" default:""`
	MaxUploadBytes   int64         `envconfig:"TRANSCRIBER_MAX_UPLOAD_BYTES" default:"1073741824"`
	ShutdownTimeout  time.Duration `envconfig:"TRANSCRIBER_SHUTDOWN_TIMEOUT" default:"30s"`
	EventsEnabled    bool          `envconfig:"TRANSCRIBER_EVENTS_ENABLED" default:"true"`
	EventsTopic      string        `envconfig:"TRANSCRIBER_EVENTS_TOPIC" default:"transcription.events"`
	EventsMaxPending int           `envconfig:"TRANSCRIBER_EVENTS_MAX_PENDING" default:"1000"`
}

type workerConfig struct {
	MaxWorkers      int64         `envconfig:"TRANSCRIBER_MAX_WORKERS" default:"4"`
	JobTimeout      time.Duration `envconfig:"TRANSCRIBER_JOB_TIMEOUT" default:"2h"`
	JanitorInterval time.Duration `envconfig:"TRANSCRIBER_JANITOR_INTERVAL" default:"30m"`
	JanitorMaxAge   time.Duration `envconfig:"TRANSCRIBER_JANITOR_MAX_AGE" default:"6h"`
}

type whisperConfig struct {
	Path        string `envconfig:"TRANSCRIBER_WHISPER_PATH" default:"whisper"`
	Model       string `envconfig:"TRANSCRIBER_WHISPER_MODEL" default:"base"`
	FFprobePath string `envconfig:"TRANSCRIBER_FFPROBE_PATH" default:"ffprobe"`
}

type downloaderConfig struct {
	YtDlpPath  string `envconfig:"TRANSCRIBER_YTDLP_PATH" default:"yt-dlp"`
	FFmpegPath string `envconfig:"TRANSCRIBER_FFMPEG_PATH" default:"ffmpeg"`
	S3         s3Config
}

type s3Config struct {
	Endpoint  string `envconfig:"TRANSCRIBER_S3_ENDPOINT" default:""`
	AccessKey string `envconfig:"TRANSCRIBER_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"TRANSCRIBER_S3_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"TRANSCRIBER_S3_USE_SSL" default:"false"`
}

// New reads the configuration from the environment once and caches it.
func New() (*Config, error) {
	if singleConfig == nil {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// NewDefault returns a fresh configuration built from defaults and the current environment.
// Tests use it to avoid sharing the cached instance.
func NewDefault() *Config {
	cfg, err := load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func load() (*Config, error) {
	cfg := &Config{
		Service:    &svcConfig{},
		Store:      &storeConfig{},
		Worker:     &workerConfig{},
		Whisper:    &whisperConfig{},
		Downloader: &downloaderConfig{},
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if cfg.Service.WorkDir == "" {
		cfg.Service.WorkDir = filepath.Join(os.TempDir(), "transcription-api")
	}
	return cfg, nil
}

func (c *Config) String() string {
	redacted := *c.Downloader
	if redacted.S3.SecretKey != "" {
		redacted.S3.SecretKey = "*****"
	}
	val, _ := json.Marshal(struct {
		Service    *svcConfig
		Store      *storeConfig
		Worker     *workerConfig
		Whisper    *whisperConfig
		Downloader *downloaderConfig
	}{c.Service, c.Store, c.Worker, c.Whisper, &redacted})
	return string(val)
}
