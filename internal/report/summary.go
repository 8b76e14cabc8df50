package report

import (
	"encoding/json"
	"sort"
	"time"

	"aecvision/internal/services"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// Count is one named pipeline counter, such as linked records.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Issue counts items of one stage that failed or were skipped for one reason.
type Issue struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Summary aggregates the outcome of one command run.
type Summary struct {
	RunID      string        `json:"run_id"`
	Command    string        `json:"command"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Counts     []Count       `json:"counts"`
	Issues     []Issue       `json:"issues"`
	OutputPath string        `json:"output_path,omitempty"`
}

// New starts a summary for command.
func New(runID, command string, startedAt time.Time) *Summary {
	return &Summary{RunID: runID, Command: command, StartedAt: startedAt}
}

// Set records a counter, replacing an earlier value with the same name.
// Counters keep the order in which they were first set.
func (s *Summary) Set(name string, value int) {
	for i := range s.Counts {
		if s.Counts[i].Name == name {
			s.Counts[i].Value = value
			return
		}
	}
	s.Counts = append(s.Counts, Count{Name: name, Value: value})
}

// Get returns a counter value, zero when unset.
func (s *Summary) Get(name string) int {
	for _, c := range s.Counts {
		if c.Name == name {
			return c.Value
		}
	}
	return 0
}

// AddIssue adds n items to the (stage, reason) issue bucket. Non-positive n
// is ignored.
func (s *Summary) AddIssue(stage, reason string, n int) {
	if n <= 0 {
		return
	}
	for i := range s.Issues {
		if s.Issues[i].Stage == stage && s.Issues[i].Reason == reason {
			s.Issues[i].Count += n
			return
		}
	}
	s.Issues = append(s.Issues, Issue{Stage: stage, Reason: reason, Count: n})
}

// AddIssues merges a reason histogram for stage in reason order.
func (s *Summary) AddIssues(stage string, reasons map[string]int) {
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.AddIssue(stage, k, reasons[k])
	}
}

// AddErrors counts each error under its classified reason.
func (s *Summary) AddErrors(stage string, errs []error) {
	for _, err := range errs {
		s.AddIssue(stage, services.Reason(err), 1)
	}
}

// IssueTotal returns the number of items across all issues.
func (s *Summary) IssueTotal() int {
	total := 0
	for _, issue := range s.Issues {
		total += issue.Count
	}
	return total
}

// Finish stamps the end time and derives the outcome: failed when err is
// non-nil, partial when issues were recorded, success otherwise.
func (s *Summary) Finish(now time.Time, err error) {
	s.FinishedAt = now
	s.Duration = now.Sub(s.StartedAt)
	switch {
	case err != nil:
		s.Outcome = OutcomeFailed
		s.Error = err.Error()
	case s.IssueTotal() > 0:
		s.Outcome = OutcomePartial
	default:
		s.Outcome = OutcomeSuccess
	}
}

// JSON renders the summary as indented JSON.
func (s *Summary) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
