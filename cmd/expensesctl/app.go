package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"expensetracker/internal/api"
	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

var errUsage = errors.New("invalid arguments")

// session is what a command runs against.
type session struct {
	cfg    *config.Config
	reader backend.Reader
	ws     *services.Workspace // nil when offline
	out    io.Writer
}

// action runs a command once its flags are parsed.
type action func(ctx context.Context, s *session) error

type command struct {
	summary string
	// remote commands need the API; they fail on the offline backend.
	remote bool
	// anonymous commands run without logging in first.
	anonymous bool
	// setup registers the command's flags and returns its action.
	setup func(fs *flag.FlagSet) action
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		printUsage(stderr)
		return 2
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	act := cmd.setup(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	if err := execute(ctx, cfg, cmd, act, stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			fs.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "%s: %s\n", name, describe(err))
		return 1
	}
	return 0
}

func execute(ctx context.Context, cfg *config.Config, cmd command, act action, stdout io.Writer) error {
	logger := log.FromContext(ctx).WithComponent(log.ComponentApp)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if cmd.remote && bcfg.Type != backend.RemoteBackend {
		return backend.ErrReadOnly
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.WarnContext(ctx, "Cleanup failed", log.FieldError, err)
		}
	}()

	s := &session{cfg: cfg, reader: res.Reader, ws: res.Workspace, out: stdout}

	if s.ws != nil && !cmd.anonymous {
		if err := cfg.ValidateCredentials(); err != nil {
			return err
		}
		creds := core.Credentials{Username: cfg.Username, Password: cfg.Password}
		if _, err := s.ws.Login(ctx, creds, nil).Result(ctx); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	return act(ctx, s)
}

// describe turns err into the line shown to the user. API failures show the
// server's alert text.
func describe(err error) string {
	if status := api.StatusCode(err); status != 0 {
		return fmt.Sprintf("%s (HTTP %d)", api.AlertMessage(err), status)
	}
	if errors.Is(err, core.ErrInvalidInput) || errors.Is(err, core.ErrPasswordMismatch) {
		return err.Error()
	}
	if errors.Is(err, api.ErrTransport) {
		return "cannot reach the expenses API: " + err.Error()
	}
	return err.Error()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: expensesctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for _, n := range names {
		fmt.Fprintf(w, "  %-*s  %s\n", width, n, commands[n].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'expensesctl <command> -h' for the flags of a command.")
}

// required takes flag name and value pairs and reports the empty ones as a
// usage error.
func required(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, "-"+pairs[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", errUsage, strings.Join(missing, ", "))
	}
	return nil
}
