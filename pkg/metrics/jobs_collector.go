package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kubev2v/transcription-api/internal/store"
	"github.com/kubev2v/transcription-api/internal/store/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type jobsCollector struct {
	store     store.Store
	jobsTotal *prometheus.Desc
}

func newJobsCollector(s store.Store) prometheus.Collector {
	return &jobsCollector{
		store: s,
		jobsTotal: prometheus.NewDesc(
			fmt.Sprintf("%s_jobs_stored", transcription),
			"Number of transcription jobs held by the store, by status.",
			[]string{jobStatusLabel},
			prometheus.Labels{},
		),
	}
}

// RegisterJobsCollector exposes the store content at scrape time.
func RegisterJobsCollector(s store.Store) error {
	err := prometheus.Register(newJobsCollector(s))
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return nil
	}
	return err
}

func (c *jobsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobsTotal
}

// Collect implements Collector.
func (c *jobsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := c.store.Transcription().Count(ctx)
	if err != nil {
		zap.S().Named("jobs_collector").Errorw("failed to count transcriptions", "error", err)
		return
	}

	for _, status := range []model.TranscriptionStatus{
		model.TranscriptionStatusProcessing,
		model.TranscriptionStatusCompleted,
		model.TranscriptionStatusError,
	} {
		ch <- prometheus.MustNewConstMetric(c.jobsTotal, prometheus.GaugeValue, float64(counts[status]), string(status))
	}
}
