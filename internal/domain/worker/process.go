// internal/domain/worker/process.go

package worker

// ProcessKind tags a scheduled unit of work. Priority is a pure function of
// the tag; there is no process class hierarchy.
type ProcessKind string

const (
	// ProcessConfig applies a new source configuration.
	ProcessConfig ProcessKind = "config"

	// ProcessArea loads photos for the latest viewport bounds.
	ProcessArea ProcessKind = "area"

	// ProcessCombine merges loaded photos and runs the culler.
	ProcessCombine ProcessKind = "combine"
)

// Priority orders process kinds for preemption: config > area > combine.
func (k ProcessKind) Priority() int {
	switch k {
	case ProcessConfig:
		return 3
	case ProcessArea:
		return 2
	case ProcessCombine:
		return 1
	default:
		return 0
	}
}
