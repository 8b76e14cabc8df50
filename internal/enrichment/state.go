package enrichment

// State is the per-record enrichment state. Records move
// Pending → Requested → {Completed, Skipped} and never leave a terminal state.
type State int

const (
	Pending State = iota
	Requested
	Completed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Requested:
		return "requested"
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Completed || s == Skipped
}

// Skip reasons recorded in Result.Reason.
const (
	ReasonNoImage   = "no_image"
	ReasonCancelled = "cancelled"
	ReasonBenign    = "benign_failure"
	ReasonTimeout   = "timeout"
	ReasonModel     = "model"
)
