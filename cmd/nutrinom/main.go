package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/nutrinom/nutrinom-go/config"
	"github.com/nutrinom/nutrinom-go/internal/bootstrap"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/presentation"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

const shutdownTimeout = 10 * time.Second

func main() {
	cmdName := ""
	if len(os.Args) >= 2 {
		cmdName = os.Args[1]
	}
	cmd, ok := commands()[cmdName]
	if !ok {
		if cmdName != "" {
			_ = writef(os.Stderr, "unknown command %q\n\n", cmdName)
		}
		_ = printUsage(os.Stderr)
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when the command is missing or unknown
	}

	cfg, err := bootstrap.LoadConfig()
	logger := bootstrap.InitLogger(cfg.SlogLevel())
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.DebugContext(ctx, "command failed", "command", cmdName, "error", runErr)
		_ = writef(os.Stderr, "%s: %s\n", cmdName, userMessage(runErr))
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in with Google in the browser",
			run:         runLogin,
		},
		"login-apple": {
			name:        "login-apple",
			description: "Sign in with a Sign in with Apple identity token",
			run:         runLoginApple,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and forget the stored session",
			run:         runLogout,
		},
		"delete-account": {
			name:        "delete-account",
			description: "Permanently delete your account and sign out",
			run:         runDeleteAccount,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the signed-in profile",
			run:         runWhoami,
		},
		"scan": {
			name:        "scan",
			description: "Read camera frames from stdin and show each scanned product",
			run:         runScan,
		},
		"lookup": {
			name:        "lookup",
			description: "Look up and save a barcode typed by hand",
			run:         runLookup,
		},
		"history": {
			name:        "history",
			description: "List previously scanned products",
			run:         runHistory,
		},
		"show": {
			name:        "show",
			description: "Reopen a product from the scan history",
			run:         runShow,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: nutrinom <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-16s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

// openApp builds the application for one command and returns a func that
// releases it.
func openApp(cmdCtx *commandContext, deps bootstrap.AppDeps) (*bootstrap.App, func(), error) {
	cfg := cmdCtx.Config
	deps.Config = &cfg
	deps.Logger = cmdCtx.Logger
	app, err := bootstrap.BuildApp(cmdCtx.Ctx, deps)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmdCtx.Ctx), shutdownTimeout)
		defer cancel()
		if closeErr := app.Close(ctx); closeErr != nil {
			cmdCtx.Logger.Warn("close app failed", "error", closeErr)
		}
	}
	return app, closeFn, nil
}

func (c *commandContext) renderer() *presentation.Renderer {
	return presentation.NewRenderer(c.Stdout)
}

// userMessage prefers the message carried by an application error.
func userMessage(err error) string {
	if msg := apperrors.GetMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

var errAborted = errors.New("aborted by user")

func confirmAction(cmdCtx *commandContext, prompt string) error {
	if err := writef(cmdCtx.Stdout, "%s [y/N]: ", prompt); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	reader := bufio.NewReader(cmdCtx.Stdin)
	resp, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errAborted
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
