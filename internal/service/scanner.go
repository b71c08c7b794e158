package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nutrinom/nutrinom-go/internal/domain/barcode"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// ScannerStatus is what the scanner screen shows.
type ScannerStatus int

const (
	// ScannerReady means detections are processed.
	ScannerReady ScannerStatus = iota
	// ScannerNoCamera means the device has no usable camera.
	ScannerNoCamera
	// ScannerPermissionRequired means the user has not been asked yet.
	ScannerPermissionRequired
	// ScannerPermissionDenied means access was refused; only system settings can change it.
	ScannerPermissionDenied
)

func (s ScannerStatus) String() string {
	switch s {
	case ScannerReady:
		return "ready"
	case ScannerNoCamera:
		return "no_camera"
	case ScannerPermissionRequired:
		return "permission_required"
	case ScannerPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

var (
	// ErrNoCamera is returned when permission is requested on a device without a camera.
	ErrNoCamera = errors.New("no camera available")
	// ErrPermissionDenied is terminal: the user must grant access in system settings.
	ErrPermissionDenied error = apperrors.PermissionDenied("Camera access denied. Open system settings to allow it.")
)

// ScanFilter restricts which detections are accepted.
type ScanFilter struct {
	Region      barcode.Region
	Symbologies []barcode.Symbology
}

// CodeHandler receives the single code emitted per armed period.
type CodeHandler func(ctx context.Context, code string)

// ScannerOptions groups dependencies for Scanner.
type ScannerOptions struct {
	Camera ports.Camera // Required
	Filter ScanFilter   // Zero value accepts every symbology in the full frame
	OnCode CodeHandler  // Required
	Logger *slog.Logger // Optional
}

// Scanner gates camera detections: while armed it forwards the first
// acceptable code and disarms itself until Focus is called.
type Scanner struct {
	camera  ports.Camera
	region  barcode.Region
	allowed map[barcode.Symbology]struct{}
	onCode  CodeHandler
	logger  *slog.Logger

	mu     sync.Mutex
	armed  bool
	denied bool
}

// NewScanner constructs an armed scanner.
func NewScanner(opts ScannerOptions) *Scanner {
	if opts.Camera == nil {
		panic("service: Scanner requires a Camera")
	}
	if opts.OnCode == nil {
		panic("service: Scanner requires an OnCode handler")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	region := opts.Filter.Region
	if region == (barcode.Region{}) {
		region = barcode.FullFrame
	}
	syms := opts.Filter.Symbologies
	if len(syms) == 0 {
		syms = barcode.All
	}
	allowed := make(map[barcode.Symbology]struct{}, len(syms))
	for _, s := range syms {
		allowed[s] = struct{}{}
	}
	return &Scanner{
		camera:  opts.Camera,
		region:  region,
		allowed: allowed,
		onCode:  opts.OnCode,
		logger:  logger.With("component", "scanner"),
		armed:   true,
	}
}

// Status derives the scanner state from the camera.
func (s *Scanner) Status() ScannerStatus {
	if !s.camera.Available() {
		return ScannerNoCamera
	}
	switch s.camera.Permission() {
	case ports.PermissionGranted:
		return ScannerReady
	case ports.PermissionDenied:
		return ScannerPermissionDenied
	default:
		s.mu.Lock()
		denied := s.denied
		s.mu.Unlock()
		if denied {
			return ScannerPermissionDenied
		}
		return ScannerPermissionRequired
	}
}

// RequestPermission prompts for camera access once. A denial is final for
// the lifetime of the scanner and yields ErrPermissionDenied.
func (s *Scanner) RequestPermission(ctx context.Context) (ScannerStatus, error) {
	switch st := s.Status(); st {
	case ScannerReady:
		return st, nil
	case ScannerNoCamera:
		return st, ErrNoCamera
	case ScannerPermissionDenied:
		return st, ErrPermissionDenied
	}

	perm, err := s.camera.RequestPermission(ctx)
	if err != nil {
		return ScannerPermissionRequired, fmt.Errorf("request camera permission: %w", err)
	}
	if perm != ports.PermissionGranted {
		s.mu.Lock()
		s.denied = true
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "camera permission denied")
		return ScannerPermissionDenied, ErrPermissionDenied
	}
	s.logger.InfoContext(ctx, "camera permission granted")
	return ScannerReady, nil
}

// Armed reports whether the next acceptable detection will be forwarded.
func (s *Scanner) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Focus re-arms the scanner. It is the only way to accept another code.
func (s *Scanner) Focus() {
	s.mu.Lock()
	s.armed = true
	s.mu.Unlock()
}

// HandleDetections processes one camera frame. At most one code is
// forwarded per armed period; everything else is dropped.
func (s *Scanner) HandleDetections(ctx context.Context, batch []barcode.Detection) {
	if len(batch) == 0 || s.Status() != ScannerReady {
		return
	}

	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}
	code, ok := s.pick(batch)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.armed = false
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "barcode accepted", "code", code)
	s.onCode(ctx, code)
}

// pick returns the first detection that passes validation and filters.
func (s *Scanner) pick(batch []barcode.Detection) (string, bool) {
	for _, d := range batch {
		code := barcode.Normalize(d.Code)
		if barcode.Validate(code) != nil {
			continue
		}
		sym := d.Symbology
		if sym == "" {
			sym = barcode.Detect(code)
		}
		if _, ok := s.allowed[sym]; !ok {
			continue
		}
		if !s.region.Contains(d.Bounds) {
			continue
		}
		return code, true
	}
	return "", false
}
