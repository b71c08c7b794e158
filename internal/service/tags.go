package service

import (
	"strconv"

	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	obserrors "github.com/nutrinom/nutrinom-go/internal/observability/errors"
)

// statusTag returns the HTTP status carried by err, "" when there is none.
func statusTag(err error) string {
	if status := apperrors.GetStatus(err); status > 0 {
		return strconv.Itoa(status)
	}
	return ""
}

// failureTags builds the tag set attached to reported scan failures.
func failureTags(operation, userID string, err error) map[string]string {
	tags := map[string]string{
		"operation":   operation,
		"error_class": obserrors.Classify(err),
	}
	if userID != "" {
		tags["user_id"] = userID
	}
	if st := statusTag(err); st != "" {
		tags["status_code"] = st
	}
	return tags
}
