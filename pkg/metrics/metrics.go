package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	transcription = "transcription"

	// Job metrics
	jobsTotal          = "jobs_total"
	jobDurationSeconds = "job_duration_seconds"
	workersBusy        = "workers_busy"
	taskFailuresTotal  = "task_failures_total"
	downloadsTotal     = "downloads_total"
	eventsDroppedTotal = "events_dropped_total"

	// Labels
	jobSourceLabel      = "source"
	jobStatusLabel      = "status"
	failureReasonLabel  = "reason"
	downloadStatusLabel = "status"
	eventTypeLabel      = "type"
)

var jobsTotalLabels = []string{
	jobSourceLabel,
	jobStatusLabel,
}

/**
* Metrics definition
**/
var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: transcription,
		Name:      jobsTotal,
		Help:      "number of transcription jobs that reached a terminal state",
	},
	jobsTotalLabels,
)

var jobDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: transcription,
		Name:      jobDurationSeconds,
		Help:      "time spent by a worker on a transcription job",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	},
	[]string{jobSourceLabel},
)

var workersBusyMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: transcription,
		Name:      workersBusy,
		Help:      "number of workers currently running a job",
	},
)

var taskFailuresMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: transcription,
		Name:      taskFailuresTotal,
		Help:      "number of worker tasks that returned an error or panicked",
	},
	[]string{failureReasonLabel},
)

var downloadsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: transcription,
		Name:      downloadsTotal,
		Help:      "number of media downloads by outcome",
	},
	[]string{downloadStatusLabel},
)

var eventsDroppedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: transcription,
		Name:      eventsDroppedTotal,
		Help:      "number of events evicted before the writer could take them",
	},
	[]string{eventTypeLabel},
)

func IncreaseJobsTotalMetric(source, status string) {
	labels := prometheus.Labels{
		jobSourceLabel: source,
		jobStatusLabel: status,
	}
	jobsTotalMetric.With(labels).Inc()
}

func ObserveJobDuration(source string, seconds float64) {
	jobDurationMetric.With(prometheus.Labels{jobSourceLabel: source}).Observe(seconds)
}

func IncreaseWorkersBusy() {
	workersBusyMetric.Inc()
}

func DecreaseWorkersBusy() {
	workersBusyMetric.Dec()
}

func IncreaseTaskFailuresMetric(reason string) {
	taskFailuresMetric.With(prometheus.Labels{failureReasonLabel: reason}).Inc()
}

func IncreaseDownloadsTotalMetric(status string) {
	downloadsTotalMetric.With(prometheus.Labels{downloadStatusLabel: status}).Inc()
}

func IncreaseEventsDroppedMetric(eventType string) {
	eventsDroppedMetric.With(prometheus.Labels{eventTypeLabel: eventType}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(jobDurationMetric)
	prometheus.MustRegister(workersBusyMetric)
	prometheus.MustRegister(taskFailuresMetric)
	prometheus.MustRegister(downloadsTotalMetric)
	prometheus.MustRegister(eventsDroppedMetric)
}
