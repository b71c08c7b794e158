package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/nutrinom/nutrinom-go/internal/adapters/oidc"
	"github.com/nutrinom/nutrinom-go/internal/bootstrap"
	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	"github.com/nutrinom/nutrinom-go/internal/presentation"
	"github.com/nutrinom/nutrinom-go/internal/service"
)

const defaultLoginTimeout = 5 * time.Minute

type loginOptions struct {
	Timeout time.Duration
}

type appleOptions struct {
	Token string
	Name  string
	Email string
}

type deleteOptions struct {
	Yes bool
}

func parseLoginFlags(args []string) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts loginOptions
	fs.DurationVar(&opts.Timeout, "timeout", defaultLoginTimeout, "How long to wait for the browser redirect")
	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultLoginTimeout
	}
	return opts, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args)
	if err != nil {
		return err
	}
	google := cmdCtx.Config.Auth.Google
	if !google.Enabled() {
		return service.ErrGoogleDisabled
	}

	app, closeApp, err := openApp(cmdCtx, bootstrap.AppDeps{WithGoogle: true})
	if err != nil {
		return err
	}
	defer closeApp()

	// Listen before printing the URL so the redirect cannot race the listener.
	callback, err := oidc.ListenCallback(google.RedirectURL, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer callback.Close()

	pending, err := app.Auth.BeginGoogle(cmdCtx.Ctx, google.RedirectURL)
	if err != nil {
		return err
	}
	if err := writef(cmdCtx.Stdout, "Open this URL in your browser to sign in with Google:\n\n  %s\n\n", pending.AuthURL); err != nil {
		return fmt.Errorf("print auth url: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()
	res, err := callback.Wait(ctx, pending.State)
	if err != nil {
		return fmt.Errorf("wait for sign-in: %w", err)
	}

	sess, err := app.Auth.CompleteGoogle(cmdCtx.Ctx, service.CompleteGoogleInput{
		Pending: pending,
		Code:    res.Code,
		State:   res.State,
	})
	if err != nil {
		return err
	}
	return printSignedIn(cmdCtx, sess)
}

func parseAppleFlags(args []string) (appleOptions, error) {
	fs := flag.NewFlagSet("login-apple", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts appleOptions
	fs.StringVar(&opts.Token, "token", "", "Identity token (prompted for when omitted)")
	fs.StringVar(&opts.Name, "name", "", "Full name shared by Apple on first sign-in")
	fs.StringVar(&opts.Email, "email", "", "Email shared by Apple on first sign-in")
	if err := fs.Parse(args); err != nil {
		return appleOptions{}, err
	}
	opts.Token = strings.TrimSpace(opts.Token)
	opts.Name = strings.TrimSpace(opts.Name)
	opts.Email = strings.TrimSpace(opts.Email)
	return opts, nil
}

func runLoginApple(cmdCtx *commandContext, args []string) error {
	opts, err := parseAppleFlags(args)
	if err != nil {
		return err
	}
	if opts.Token == "" {
		token, readErr := readSecret(cmdCtx, "Apple identity token: ")
		if readErr != nil {
			return readErr
		}
		opts.Token = token
	}

	app, closeApp, err := openApp(cmdCtx, bootstrap.AppDeps{})
	if err != nil {
		return err
	}
	defer closeApp()

	sess, err := app.Auth.LoginApple(cmdCtx.Ctx, domainauth.AppleCredential{
		IdentityToken: opts.Token,
		FullName:      opts.Name,
		Email:         opts.Email,
	})
	if err != nil {
		return err
	}
	return printSignedIn(cmdCtx, sess)
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(cmdCtx *commandContext, prompt string) (string, error) {
	if err := writef(cmdCtx.Stderr, "%s", prompt); err != nil {
		return "", fmt.Errorf("print prompt: %w", err)
	}
	if f, ok := cmdCtx.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_ = writeln(cmdCtx.Stderr)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(cmdCtx.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printSignedIn(cmdCtx *commandContext, sess domainauth.Session) error {
	name := sess.User.DisplayName()
	if name == "" && sess.User != nil {
		name = sess.User.Email
	}
	if name == "" {
		return writeln(cmdCtx.Stdout, "Signed in.")
	}
	return writef(cmdCtx.Stdout, "Signed in as %s.\n", name)
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	app, closeApp, err := openApp(cmdCtx, bootstrap.AppDeps{})
	if err != nil {
		return err
	}
	defer closeApp()

	app.Session.Logout(cmdCtx.Ctx)
	return writeln(cmdCtx.Stdout, "Signed out.")
}

func parseDeleteFlags(args []string) (deleteOptions, error) {
	fs := flag.NewFlagSet("delete-account", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts deleteOptions
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return deleteOptions{}, err
	}
	return opts, nil
}

func runDeleteAccount(cmdCtx *commandContext, args []string) error {
	opts, err := parseDeleteFlags(args)
	if err != nil {
		return err
	}

	app, closeApp, err := openApp(cmdCtx, bootstrap.AppDeps{})
	if err != nil {
		return err
	}
	defer closeApp()

	if !app.Session.Snapshot().IsAuthenticated() {
		return writeln(cmdCtx.Stdout, "Not signed in.")
	}
	if !opts.Yes {
		if err := confirmAction(cmdCtx, "This permanently deletes your account and scan history. Continue?"); err != nil {
			return err
		}
	}
	if err := app.Session.DeleteAccount(cmdCtx.Ctx); err != nil {
		return err
	}
	return writeln(cmdCtx.Stdout, "Account deleted.")
}

func runWhoami(cmdCtx *commandContext, _ []string) error {
	app, closeApp, err := openApp(cmdCtx, bootstrap.AppDeps{})
	if err != nil {
		return err
	}
	defer closeApp()

	sess := app.Session.Snapshot()
	if !sess.IsAuthenticated() {
		return writeln(cmdCtx.Stdout, "Not signed in. Run \"nutrinom login\" or \"nutrinom login-apple\".")
	}
	return cmdCtx.renderer().Profile(presentation.BuildProfileView(sess, presentation.RandomFoodFact()))
}
