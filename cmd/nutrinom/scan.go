package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/nutrinom/nutrinom-go/internal/adapters/linecam"
	"github.com/nutrinom/nutrinom-go/internal/bootstrap"
	"github.com/nutrinom/nutrinom-go/internal/domain/barcode"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	"github.com/nutrinom/nutrinom-go/internal/ports"
	"github.com/nutrinom/nutrinom-go/internal/presentation"
	"github.com/nutrinom/nutrinom-go/internal/service"
)

// screen is the terminal Navigator. The result screen is redrawn only when
// its content changed since the last draw.
type screen struct {
	cmdCtx   *commandContext
	renderer *presentation.Renderer

	mu    sync.Mutex
	scans *service.ScanState
	last  string
}

var _ ports.Navigator = (*screen)(nil)

func newScreen(cmdCtx *commandContext) *screen {
	return &screen{cmdCtx: cmdCtx, renderer: cmdCtx.renderer()}
}

func (s *screen) attach(scans *service.ScanState) {
	s.mu.Lock()
	s.scans = scans
	s.mu.Unlock()
}

func (s *screen) Navigate(ctx context.Context, route ports.Route) {
	var err error
	switch route {
	case ports.RouteResult:
		err = s.showResult()
	case ports.RouteScanner:
		s.mu.Lock()
		s.last = ""
		s.mu.Unlock()
		err = writeln(s.cmdCtx.Stdout, "\nReady. Point the camera at a barcode.")
	case ports.RouteLogin:
		err = writeln(s.cmdCtx.Stdout, "Not signed in: scans are shown but not saved. Run \"nutrinom login\" to keep a history.")
	}
	if err != nil {
		s.cmdCtx.Logger.WarnContext(ctx, "draw screen failed", "route", route, "error", err)
	}
}

func (s *screen) showResult() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scans == nil {
		return nil
	}

	var buf bytes.Buffer
	r := presentation.NewRenderer(&buf).WithColor(s.renderer.Color())
	if err := r.Result(presentation.BuildResultView(s.scans.Snapshot())); err != nil {
		return err
	}
	if buf.String() == s.last {
		return nil
	}
	s.last = buf.String()
	if err := writeln(s.cmdCtx.Stdout); err != nil {
		return err
	}
	_, err := s.cmdCtx.Stdout.Write(buf.Bytes())
	return err
}

// scanHandler routes camera events: frames go to the scanner and a focus
// line starts a new scan.
type scanHandler struct {
	ctx      context.Context
	scanner  *service.Scanner
	pipeline *service.Pipeline
}

func (h scanHandler) HandleDetections(ctx context.Context, batch []barcode.Detection) {
	h.scanner.HandleDetections(ctx, batch)
}

func (h scanHandler) Focus() {
	h.pipeline.Retry(h.ctx)
}

type scanOptions struct {
	Once        bool
	AllowCamera bool
}

func parseScanFlags(args []string) (scanOptions, error) {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts scanOptions
	fs.BoolVar(&opts.Once, "once", false, "Exit after the first scanned product")
	fs.BoolVar(&opts.AllowCamera, "allow-camera", false, "Grant camera access without prompting")
	if err := fs.Parse(args); err != nil {
		return scanOptions{}, err
	}
	return opts, nil
}

func runScan(cmdCtx *commandContext, args []string) error {
	opts, err := parseScanFlags(args)
	if err != nil {
		return err
	}

	scr := newScreen(cmdCtx)
	app, closeApp, err := openApp(cmdCtx, bootstrap.AppDeps{Navigator: scr})
	if err != nil {
		return err
	}
	defer closeApp()
	scr.attach(app.Scans)

	ctx, cancel := context.WithCancel(cmdCtx.Ctx)
	defer cancel()

	if service.RouteFor(app.Session.Snapshot()) == ports.RouteLogin {
		scr.Navigate(ctx, ports.RouteLogin)
	}

	perm := ports.PermissionUndetermined
	if opts.AllowCamera {
		perm = ports.PermissionGranted
	}
	cam := linecam.New(linecam.Config{
		Input:      cmdCtx.Stdin,
		Prompt:     cmdCtx.Stderr,
		Permission: perm,
		Logger:     cmdCtx.Logger,
	})

	scanner, err := app.NewScanner(cam, func(ctx context.Context, _ string) {
		app.Pipeline.Wait()
		if drawErr := scr.showResult(); drawErr != nil {
			cmdCtx.Logger.WarnContext(ctx, "draw result failed", "error", drawErr)
		}
		if opts.Once {
			cancel()
			return
		}
		_ = writeln(cmdCtx.Stdout, "\nPress Enter to scan another product.")
	})
	if err != nil {
		return err
	}

	if _, err := scanner.RequestPermission(ctx); err != nil {
		return err
	}
	scr.Navigate(ctx, ports.RouteScanner)

	done := make(chan error, 1)
	go func() {
		done <- cam.Run(ctx, scanHandler{ctx: ctx, scanner: scanner, pipeline: app.Pipeline})
	}()

	select {
	case runErr := <-done:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("read camera frames: %w", runErr)
		}
		return nil
	case <-ctx.Done():
		// The reader may stay blocked on stdin; the process is about to exit.
		return nil
	}
}

func runLookup(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: nutrinom lookup <barcode>")
	}

	scr := newScreen(cmdCtx)
	app, closeApp, err := openApp(cmdCtx, bootstrap.AppDeps{Navigator: scr})
	if err != nil {
		return err
	}
	defer closeApp()
	scr.attach(app.Scans)

	if service.RouteFor(app.Session.Snapshot()) == ports.RouteLogin {
		scr.Navigate(cmdCtx.Ctx, ports.RouteLogin)
	}
	if _, err := app.Pipeline.HandleCode(cmdCtx.Ctx, strings.TrimSpace(args[0])); err != nil {
		return err
	}
	app.Pipeline.Wait()
	return scr.showResult()
}

func runHistory(cmdCtx *commandContext, _ []string) error {
	app, closeApp, err := openApp(cmdCtx, bootstrap.AppDeps{})
	if err != nil {
		return err
	}
	defer closeApp()

	entries, err := app.History.List(cmdCtx.Ctx)
	if err != nil {
		return err
	}
	return cmdCtx.renderer().History(presentation.BuildHistoryView(entries))
}

func runShow(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: nutrinom show <history number | product id>")
	}

	app, closeApp, err := openApp(cmdCtx, bootstrap.AppDeps{})
	if err != nil {
		return err
	}
	defer closeApp()

	entries, err := app.History.List(cmdCtx.Ctx)
	if err != nil {
		return err
	}
	entry, err := pickHistoryEntry(entries, strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	if _, err := app.History.Open(cmdCtx.Ctx, entry); err != nil {
		return err
	}
	return cmdCtx.renderer().Result(presentation.BuildResultView(app.Scans.Snapshot()))
}

// pickHistoryEntry selects by 1-based position first, then by product id.
func pickHistoryEntry(entries []scan.HistoryEntry, ref string) (scan.HistoryEntry, error) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(entries) {
		return entries[n-1], nil
	}
	for _, e := range entries {
		if e.ProductID == ref {
			return e, nil
		}
	}
	return scan.HistoryEntry{}, fmt.Errorf("no history entry %q", ref)
}
