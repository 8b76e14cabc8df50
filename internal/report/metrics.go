package report

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "aecvision"

// WriteTextfile exports the summary in the node-exporter textfile format. The
// file is replaced atomically. An empty path is a no-op.
func WriteTextfile(path string, s *Summary) error {
	if strings.TrimSpace(path) == "" || s == nil {
		return nil
	}
	reg := prometheus.NewRegistry()

	counts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "run_items",
		Help:      "Items counted by the last run, by counter name.",
	}, []string{"command", "name"})
	issues := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "run_issues",
		Help:      "Items skipped or failed in the last run, by stage and reason.",
	}, []string{"command", "stage", "reason"})
	duration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the last run.",
	}, []string{"command"})
	finished := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "run_finished_timestamp_seconds",
		Help:      "Unix time the last run finished.",
	}, []string{"command", "outcome"})
	reg.MustRegister(counts, issues, duration, finished)

	for _, c := range s.Counts {
		counts.WithLabelValues(s.Command, c.Name).Set(float64(c.Value))
	}
	for _, issue := range s.Issues {
		issues.WithLabelValues(s.Command, issue.Stage, issue.Reason).Set(float64(issue.Count))
	}
	duration.WithLabelValues(s.Command).Set(s.Duration.Seconds())
	if !s.FinishedAt.IsZero() {
		finished.WithLabelValues(s.Command, s.Outcome).Set(float64(s.FinishedAt.Unix()))
	}

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
