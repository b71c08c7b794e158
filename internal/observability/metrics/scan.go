package metrics

import (
	"time"

	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	obserrors "github.com/nutrinom/nutrinom-go/internal/observability/errors"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultShared  = "shared"
)

// CycleMetric captures a scan cycle reaching a terminal stage.
type CycleMetric struct {
	Stage    scan.Stage
	Reason   scan.FailureKind
	Duration time.Duration
}

// EmitScanCycle emits the terminal stage of a scan cycle.
func EmitScanCycle(sink statsd.Sink, in CycleMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"stage": in.Stage.String()}
	if in.Reason != scan.FailureNone {
		tags["reason"] = string(in.Reason)
	}
	sink.Count("scan.cycle", 1, tags)
	if in.Duration > 0 {
		sink.Timing("scan.cycle.duration", in.Duration, CloneTags(tags))
	}
}

// OpMetric captures one remote or cached operation (lookup, save, enrich, ...).
type OpMetric struct {
	Operation string
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitOperation emits a counter and, when timed, a duration for an operation.
func EmitOperation(sink statsd.Sink, in OpMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("op.count", 1, tags)
	if in.Duration > 0 {
		sink.Timing("op.duration", in.Duration, CloneTags(tags))
	}
}

// ResultFor maps an error onto ResultSuccess or ResultError.
func ResultFor(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
