package whisper

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/kubev2v/transcription-api/internal/store/model"
	"github.com/kubev2v/transcription-api/pkg/command"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	textlang "golang.org/x/text/language"
)

const (
	stageTranscribe = "transcribe"
	stageDuration   = "duration"
)

// Result is what a transcription engine reports for one media file.
type Result struct {
	Text     string
	Segments []model.Segment
	Language string
	// Duration is nil when the engine could not determine it.
	Duration *float64
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string, language string) (*Result, error)
}

// CLI runs the openai-whisper command line tool and reads its JSON output.
type CLI struct {
	whisperPath string
	ffprobePath string
	model       string
	runner      command.Runner
	log         *zap.SugaredLogger
}

type CLIOption func(*CLI)

func WithRunner(r command.Runner) CLIOption {
	return func(c *CLI) {
		c.runner = r
	}
}

func WithFFprobe(path string) CLIOption {
	return func(c *CLI) {
		c.ffprobePath = path
	}
}

func WithModel(m string) CLIOption {
	return func(c *CLI) {
		c.model = m
	}
}

func NewCLI(whisperPath string, opts ...CLIOption) *CLI {
	c := &CLI{
		whisperPath: whisperPath,
		ffprobePath: "ffprobe",
		model:       "base",
		runner:      command.NewExecRunner(),
		log:         zap.S().Named("whisper"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type output struct {
	Text     string          `json:"text"`
	Segments []model.Segment `json:"segments"`
	Language string          `json:"language"`
}

func (c *CLI) Transcribe(ctx context.Context, path string, language string) (*Result, error) {
	outDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create whisper output dir")
	}
	defer func() {
		_ = os.RemoveAll(outDir)
	}()

	args := buildArgs(path, c.model, outDir, language)
	c.log.Debugw("running whisper", "path", path, "model", c.model, "language", language)

	res, err := c.runner.Run(ctx, c.whisperPath, args...)
	if err != nil {
		return nil, command.NewError(stageTranscribe, c.whisperPath, res, err)
	}

	data, err := os.ReadFile(outputFile(outDir, path))
	if err != nil {
		return nil, errors.Wrap(err, "whisper produced no output")
	}

	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "failed to parse whisper output")
	}

	result := &Result{
		Text:     out.Text,
		Segments: out.Segments,
		Language: out.Language,
		Duration: c.readDuration(ctx, path),
	}
	if result.Segments == nil {
		result.Segments = []model.Segment{}
	}

	return result, nil
}

// readDuration is best effort; when ffprobe fails the duration stays unknown.
func (c *CLI) readDuration(ctx context.Context, path string) *float64 {
	if c.ffprobePath == "" {
		return nil
	}

	res, err := c.runner.Run(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		c.log.Debugw("failed to read duration", "path", path, "error", command.NewError(stageDuration, c.ffprobePath, res, err))
		return nil
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil || d < 0 {
		return nil
	}
	return &d
}

// IsAutoLanguage reports whether the hint asks for language detection.
func IsAutoLanguage(language string) bool {
	l := strings.TrimSpace(language)
	return l == "" || strings.EqualFold(l, "auto")
}

// three letter codes known to whisper, every other three letter hint is a name like "Lao"
var threeLetterCodes = []string{"haw", "yue"}

// NormalizeLanguage turns a hint into the form the whisper CLI accepts: a lowercase code
// ("en") or a Title case name ("Haitian Creole").
func NormalizeLanguage(language string) string {
	l := strings.Join(strings.Fields(language), " ")
	lower := strings.ToLower(l)
	if len(l) == 2 || slices.Contains(threeLetterCodes, lower) {
		return lower
	}
	return cases.Title(textlang.Und).String(l)
}

func buildArgs(path, model, outDir, language string) []string {
	args := []string{
		path,
		"--model", model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if !IsAutoLanguage(language) {
		args = append(args, "--language", NormalizeLanguage(language))
	}
	return args
}

func outputFile(outDir, path string) string {
	base := filepath.Base(path)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".json")
}
