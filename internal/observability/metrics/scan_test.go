package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
)

func TestEmitScanCycle(t *testing.T) {
	var rec statsd.Recorder
	EmitScanCycle(&rec, CycleMetric{Stage: scan.StageFailed, Reason: scan.FailureNotFound, Duration: time.Second})
	EmitScanCycle(&rec, CycleMetric{Stage: scan.StageSaved})
	EmitScanCycle(nil, CycleMetric{Stage: scan.StageSaved})

	assert.Equal(t, int64(1), rec.Total("scan.cycle", map[string]string{"stage": "failed", "reason": "not_found"}))
	assert.Equal(t, int64(1), rec.Total("scan.cycle", map[string]string{"stage": "saved"}))
	assert.Len(t, rec.Metrics(), 3)
}

func TestEmitOperation(t *testing.T) {
	var rec statsd.Recorder
	EmitOperation(&rec, OpMetric{Operation: "save", Result: ResultFor(apperrors.SaveFailed("x")), Err: apperrors.SaveFailed("x")})
	EmitOperation(&rec, OpMetric{Operation: "lookup", Result: ResultHit, Err: errors.New("ignored")})

	ms := rec.Metrics()
	assert.Equal(t, "save_failed", ms[0].Tags["error_class"])
	_, tagged := ms[1].Tags["error_class"]
	assert.False(t, tagged, "error class is only tagged on error results")
	assert.Equal(t, ResultSuccess, ResultFor(nil))
	assert.Nil(t, CloneTags(nil))
}
