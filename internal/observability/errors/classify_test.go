package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
)

type customErr struct{}

func (*customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app error", fmt.Errorf("lookup: %w", apperrors.NotFound("x")), "not_found"},
		{"scan failure", &scan.Failure{Kind: scan.FailureSaveFailed}, "save_failed"},
		{"custom type", fmt.Errorf("wrap: %w", &customErr{}), "errors_customerr"},
		{"stdlib", goerrors.New("plain"), "errors_errorstring"},
		{"context", context.DeadlineExceeded, "context_deadlineexceedederror"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
