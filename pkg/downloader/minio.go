package downloader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/kubev2v/transcription-api/pkg/command"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const s3Scheme = "s3"

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	accessKey       string
	secretAccessKey string
	useSSL          bool
	ffmpegPath      string
	runner          command.Runner
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{
		useSSL:     false,
		ffmpegPath: "ffmpeg",
		runner:     command.NewExecRunner(),
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// MinioDownloader fetches s3://bucket/key objects from an S3 compatible endpoint.
type MinioDownloader struct {
	cfg    *minioConfig
	client *minio.Client
}

func NewMinioDownloader(opts ...MinioOpts) (*MinioDownloader, error) {
	cfg := newConfig(opts...)

	minioClient, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinioDownloader{cfg: cfg, client: minioClient}, nil
}

func (s *MinioDownloader) Supports(rawURL string) bool {
	_, _, err := parseObjectURL(rawURL)
	return err == nil
}

func (s *MinioDownloader) Download(ctx context.Context, rawURL string, template string) error {
	bucket, key, err := parseObjectURL(rawURL)
	if err != nil {
		return err
	}

	object, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer object.Close()

	objInfo, err := object.Stat()
	if err != nil {
		return err
	}

	if err := copyToFile(ctx, template, object, objInfo.Size); err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(template)
	}()

	return Transcode(ctx, s.cfg.runner, s.cfg.ffmpegPath, template, OutputPath(template))
}

func (s *MinioDownloader) Type() string {
	return "minio"
}

func parseObjectURL(rawURL string) (bucket string, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != s3Scheme {
		return "", "", fmt.Errorf("not an s3 url: %q", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 url must be s3://bucket/key: %q", rawURL)
	}
	return u.Host, key, nil
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}

func WithFFmpeg(path string, runner command.Runner) MinioOpts {
	return func(c *minioConfig) {
		c.ffmpegPath = path
		c.runner = runner
	}
}
