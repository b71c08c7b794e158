package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
)

// Classify returns a normalized error class suitable for tagging metrics and
// telemetry. Application errors and scan failures use their code; anything
// else is named after its innermost concrete type in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var f *scan.Failure
	if goerrors.As(err, &f) && f.Kind != scan.FailureNone {
		return string(f.Kind)
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
