// Package linecam is a text-driven stand-in for the device camera. Each input
// line is one frame: a batch of detections separated by ";", each written as
// "CODE [SYMBOLOGY] [x,y,w,h]". A blank line or "focus" re-focuses the scanner,
// and "quit" ends the session. Lines that do not parse are logged and skipped.
package linecam

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/nutrinom/nutrinom-go/internal/domain/barcode"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

var _ ports.Camera = (*Camera)(nil)

// Config configures a line camera.
type Config struct {
	Input io.Reader
	// Prompt receives the permission question. When nil the permission starts granted.
	Prompt     io.Writer
	Permission ports.CameraPermission
	Logger     *slog.Logger
}

// Handler receives frames and focus events from Run.
type Handler interface {
	HandleDetections(ctx context.Context, batch []barcode.Detection)
	Focus()
}

// Camera implements ports.Camera over a line reader.
type Camera struct {
	lines  *bufio.Scanner
	prompt io.Writer
	logger *slog.Logger

	mu         sync.Mutex
	permission ports.CameraPermission
}

// New creates a camera. A nil Input means no camera is available.
func New(cfg Config) *Camera {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Camera{prompt: cfg.Prompt, permission: cfg.Permission, logger: logger.With("component", "linecam")}
	if cfg.Input != nil {
		c.lines = bufio.NewScanner(cfg.Input)
	}
	if cfg.Prompt == nil && cfg.Permission == ports.PermissionUndetermined {
		c.permission = ports.PermissionGranted
	}
	return c
}

func (c *Camera) Available() bool { return c.lines != nil }

func (c *Camera) Permission() ports.CameraPermission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission
}

// RequestPermission asks once on the prompt writer. Only an explicit "y" or
// "yes" grants access.
func (c *Camera) RequestPermission(ctx context.Context) (ports.CameraPermission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.permission != ports.PermissionUndetermined {
		return c.permission, nil
	}
	if c.lines == nil {
		return c.permission, errors.New("no camera available")
	}
	if err := ctx.Err(); err != nil {
		return c.permission, err
	}

	_, _ = fmt.Fprint(c.prompt, "Allow nutrinom to use the camera? [y/N] ")
	answer := ""
	if c.lines.Scan() {
		answer = strings.ToLower(strings.TrimSpace(c.lines.Text()))
	} else if err := c.lines.Err(); err != nil {
		return c.permission, fmt.Errorf("read permission answer: %w", err)
	}
	if answer == "y" || answer == "yes" {
		c.permission = ports.PermissionGranted
	} else {
		c.permission = ports.PermissionDenied
	}
	return c.permission, nil
}

// Run feeds frames to h until the input ends, "quit" is read or ctx is done.
func (c *Camera) Run(ctx context.Context, h Handler) error {
	if c.lines == nil {
		return errors.New("no camera available")
	}
	for c.lines.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(c.lines.Text())
		switch strings.ToLower(line) {
		case "quit", "exit":
			return nil
		case "", "focus":
			h.Focus()
			continue
		}
		batch, err := ParseFrame(line)
		if err != nil {
			c.logger.WarnContext(ctx, "frame skipped", "line", line, "error", err)
			continue
		}
		h.HandleDetections(ctx, batch)
	}
	return c.lines.Err()
}

// ParseFrame parses one input line into detections.
func ParseFrame(line string) ([]barcode.Detection, error) {
	var batch []barcode.Detection
	for _, item := range strings.Split(line, ";") {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			continue
		}
		d := barcode.Detection{Code: fields[0]}
		for _, f := range fields[1:] {
			if strings.Contains(f, ",") {
				r, err := parseRect(f)
				if err != nil {
					return nil, err
				}
				d.Bounds = r
				continue
			}
			sym, err := barcode.ParseSymbology(f)
			if err != nil {
				return nil, err
			}
			d.Symbology = sym
		}
		batch = append(batch, d)
	}
	return batch, nil
}

func parseRect(s string) (barcode.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return barcode.Rect{}, fmt.Errorf("bounds %q must have 4 values", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return barcode.Rect{}, fmt.Errorf("bounds %q: %w", s, err)
		}
		v[i] = f
	}
	return barcode.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
