// Package metrics counts fetch and transcode outcomes with Prometheus
// collectors and writes them to a node_exporter textfile.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ytget/phin/internal/model"
)

// Namespace prefixes every metric name.
const Namespace = "phin"

// Metrics holds the Prometheus collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal          prometheus.Counter
	FetchTasksTotal    *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec
	FetchBytesTotal    prometheus.Counter
	LastRunTimestamp   prometheus.Gauge
	LastRunFailed      prometheus.Gauge
	TranscodeTaskTotal *prometheus.CounterVec
	TranscodeDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.RunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_runs_total",
			Help:      "Total fetch runs finished.",
		},
	)

	m.FetchTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_tasks_total",
			Help:      "Catalog entries processed, by category and outcome.",
		},
		[]string{"category", "status"},
	)

	m.FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Wall time of a downloader invocation, by category.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"category"},
	)

	m.FetchBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_bytes_total",
			Help:      "Bytes of audio written by completed downloads.",
		},
	)

	m.LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "fetch_last_run_timestamp_seconds",
			Help:      "Finish time of the last fetch run.",
		},
	)

	m.LastRunFailed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "fetch_last_run_failed",
			Help:      "Failed entries in the last fetch run.",
		},
	)

	m.TranscodeTaskTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "transcode_tasks_total",
			Help:      "Files processed by postprocessing recipes, by recipe and outcome.",
		},
		[]string{"recipe", "status"},
	)

	m.TranscodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Wall time of an ffmpeg invocation, by recipe.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"recipe"},
	)

	m.registry.MustRegister(
		m.RunsTotal,
		m.FetchTasksTotal,
		m.FetchDuration,
		m.FetchBytesTotal,
		m.LastRunTimestamp,
		m.LastRunFailed,
		m.TranscodeTaskTotal,
		m.TranscodeDuration,
	)

	return m
}

// BeginRun does nothing; runs are counted when they finish.
func (m *Metrics) BeginRun(context.Context, *model.Report) error {
	return nil
}

// RecordTask counts a finished fetch task.
func (m *Metrics) RecordTask(_ context.Context, _ string, task *model.FetchTask) error {
	if !task.Status.IsFinished() {
		return nil
	}

	category := string(task.Entry.Category)
	m.FetchTasksTotal.WithLabelValues(category, task.Status.String()).Inc()

	if d := task.Duration(); d > 0 {
		m.FetchDuration.WithLabelValues(category).Observe(d.Seconds())
	}

	if task.Status == model.TaskStatusCompleted && task.FileSize > 0 {
		m.FetchBytesTotal.Add(float64(task.FileSize))
	}
	return nil
}

// FinishRun records the end of a run.
func (m *Metrics) FinishRun(_ context.Context, report *model.Report) error {
	m.RunsTotal.Inc()
	m.LastRunFailed.Set(float64(report.Failed()))
	if !report.FinishedAt.IsZero() {
		m.LastRunTimestamp.Set(float64(report.FinishedAt.Unix()))
	} else {
		m.LastRunTimestamp.SetToCurrentTime()
	}
	return nil
}

// ObserveTranscode counts a finished transcode task.
func (m *Metrics) ObserveTranscode(task *model.TranscodeTask) {
	if !task.Status.IsFinished() {
		return
	}

	m.TranscodeTaskTotal.WithLabelValues(task.Recipe, task.Status.String()).Inc()

	if !task.StartedAt.IsZero() && !task.FinishedAt.IsZero() {
		m.TranscodeDuration.WithLabelValues(task.Recipe).
			Observe(task.FinishedAt.Sub(task.StartedAt).Seconds())
	}
}

// WriteTextfile writes the current values in the text exposition format to
// path, atomically, for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("cannot write metrics to %s: %w", path, err)
	}
	return nil
}
