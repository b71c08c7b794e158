package ports

import "context"

// Reporter forwards diagnostics to the crash/telemetry collaborator.
// Implementations must never receive raw bearer tokens.
type Reporter interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
	Breadcrumb(ctx context.Context, category, message string, data map[string]string)
}
