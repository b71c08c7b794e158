package scan

import "time"

// Stage is the position of a scan cycle in the pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageScanned
	StageLookingUp
	StageSaved
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageScanned:
		return "scanned"
	case StageLookingUp:
		return "looking_up"
	case StageSaved:
		return "saved"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Cycle describes one pass from detection to a terminal stage.
type Cycle struct {
	ID         string
	Generation uint64
	Code       string
	Stage      Stage
	// Reason is set when Stage is StageFailed.
	Reason    FailureKind
	StartedAt time.Time
}

// Terminal reports whether the cycle has finished.
func (c Cycle) Terminal() bool {
	return c.Stage == StageSaved || c.Stage == StageFailed
}
