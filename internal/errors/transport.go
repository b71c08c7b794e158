package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// MapTransportError maps a failed HTTP round trip to an AppError.
// It handles the common patterns:
// - context.DeadlineExceeded or a net timeout → Timeout
// - context.Canceled → Canceled
// - anything else that never produced a response → Network
//
// AppErrors pass through unchanged.
func MapTransportError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out. Please try again.",
			Cause:   err,
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out. Please try again.",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeCanceled,
			Message: "Request was canceled.",
			Cause:   err,
		}
	}

	return &AppError{
		Code:    ErrCodeNetwork,
		Message: "Unable to reach the server. Check your connection.",
		Cause:   err,
	}
}

// MapStatus maps a non-2xx backend status to an AppError. detail, when
// non-empty, replaces the default message.
func MapStatus(status int, detail string) *AppError {
	var e *AppError
	switch {
	case status == http.StatusNotFound:
		e = &AppError{Code: ErrCodeNotFound, Message: "Product not found"}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = &AppError{Code: ErrCodeAuthRequired, Message: "Please sign in again"}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e = &AppError{Code: ErrCodeValidation, Message: "The request was rejected"}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e = &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again."}
	default:
		e = &AppError{Code: ErrCodeServer, Message: "Server error"}
	}
	e.Status = status
	if detail != "" {
		e.Message = detail
	}
	return e
}

// IsTransient reports whether retrying the same request could succeed.
func IsTransient(err error) bool {
	switch GetCode(err) {
	case ErrCodeNetwork, ErrCodeTimeout, ErrCodeServer:
		return true
	default:
		return false
	}
}
