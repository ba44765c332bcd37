// Package metrics exposes repository activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "codepad"

// Collector groups the repository metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	Commits       prometheus.Counter
	Rejections    *prometheus.CounterVec
	WorkingFiles  prometheus.Gauge
	StagedFiles   prometheus.Gauge
	HistoryLength prometheus.Gauge
	AssistCalls   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Commits added to history.",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_operations_total",
			Help:      "Operations rejected without changing state, by error type.",
		}, []string{"type"}),
		WorkingFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "working_files",
			Help:      "Files in the working set.",
		}),
		StagedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "staged_files",
			Help:      "File ids currently staged.",
		}),
		HistoryLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_length",
			Help:      "Commits in history.",
		}),
		AssistCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assist_calls_total",
			Help:      "Code intelligence calls by action and outcome.",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(c.Commits, c.Rejections, c.WorkingFiles, c.StagedFiles, c.HistoryLength, c.AssistCalls)
	return c
}

func (c *Collector) CommitAdded(historyLen int) {
	if c == nil {
		return
	}
	c.Commits.Inc()
	c.HistoryLength.Set(float64(historyLen))
}

func (c *Collector) Rejected(errType string) {
	if c == nil {
		return
	}
	c.Rejections.WithLabelValues(errType).Inc()
}

// Sizes records the current working set, staging and history sizes.
func (c *Collector) Sizes(files, staged, history int) {
	if c == nil {
		return
	}
	c.WorkingFiles.Set(float64(files))
	c.StagedFiles.Set(float64(staged))
	c.HistoryLength.Set(float64(history))
}

func (c *Collector) Assist(action string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.AssistCalls.WithLabelValues(action, outcome).Inc()
}
