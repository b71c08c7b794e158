package ports

import "context"

// CameraPermission is the OS permission state for the camera.
type CameraPermission int

const (
	// PermissionUndetermined means the user has not been asked yet.
	PermissionUndetermined CameraPermission = iota
	PermissionGranted
	PermissionDenied
)

// Camera exposes the capture device and its permission.
type Camera interface {
	Available() bool
	Permission() CameraPermission
	// RequestPermission prompts the user once and returns the result.
	RequestPermission(ctx context.Context) (CameraPermission, error)
}

// Route names a top-level screen.
type Route string

const (
	RouteLogin   Route = "login"
	RouteScanner Route = "scanner"
	RouteResult  Route = "result"
	RouteHistory Route = "history"
	RouteProfile Route = "profile"
)

// Navigator switches the visible screen.
type Navigator interface {
	Navigate(ctx context.Context, route Route)
}
