// Package main is the entry point for garmindl. It parses the command line,
// loads configuration and runs the download with a progress UI or plain output.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/j-veylop/garmindl/internal/app"
	"github.com/j-veylop/garmindl/internal/cli"
	"github.com/j-veylop/garmindl/internal/config"
	"github.com/j-veylop/garmindl/internal/garmin"
	"github.com/j-veylop/garmindl/internal/logger"
	"github.com/j-veylop/garmindl/internal/models"
	"github.com/j-veylop/garmindl/internal/services"
	"github.com/j-veylop/garmindl/internal/ui/report"
	"github.com/j-veylop/garmindl/internal/ui/styles"
	"github.com/j-veylop/garmindl/internal/version"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const (
	logFileName    = "garmindl.log"
	runStopTimeout = 5 * time.Second
)

var timeNow = time.Now

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run contains the main application logic and returns the exit code.
func run(argv []string, stdout, stderr io.Writer) int {
	args, err := cli.Parse(argv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\nRun 'garmindl --help' for usage.\n", err)
		return exitUsage
	}

	switch args.Command {
	case cli.CommandHelp:
		fmt.Fprint(stdout, cli.Usage)
		return exitOK
	case cli.CommandVersion:
		fmt.Fprintln(stdout, version.Info())
		return exitOK
	}

	// 1. Load configuration from .env files and environment variables
	logger.SetOutput(stderr)
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	if args.Verbose {
		logger.SetLevel("debug")
	}

	if args.Command == cli.CommandToken {
		return runToken(cfg, stdout, stderr)
	}

	// 2. Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize the service manager
	mgr, err := services.NewManager(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize services: %v\n", err)
		return exitFailure
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			fmt.Fprintf(stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()
	logger.Debug("services ready", "ledger", mgr.HasLedger(), "sinks", mgr.Sinks())

	if args.Command == cli.CommandHistory {
		return runHistory(ctx, mgr, args, stdout, stderr)
	}
	return runDownload(ctx, cfg, mgr, args, stdout, stderr)
}

func runDownload(ctx context.Context, cfg *config.Config, mgr *services.Manager, args *cli.Args, stdout, stderr io.Writer) int {
	outputDir := cfg.OutputDir
	if args.OutputDir != "" {
		outputDir = args.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(stderr, "Error: failed to create output directory: %v\n", err)
		return exitFailure
	}

	if n, err := mgr.CloseStaleRuns(ctx); err != nil {
		logger.Warn("failed to close stale runs", "error", err)
	} else if n > 0 {
		logger.Info("marked stale runs interrupted", "count", n)
	}

	svc := mgr.Download()
	svc.SetOutputDir(outputDir)
	svc.SetFailFast(args.FailFast)
	if args.Notify {
		svc.SetNotify(true)
	}

	out, tty := terminal(stdout)
	var rep *models.RunReport
	var runErr error
	cancelled := false

	if tty && !args.Plain {
		model, err := runTUI(ctx, cfg, mgr, args.Request, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: error running TUI: %v\n", err)
			return exitFailure
		}
		rep, runErr = model.Result()
		cancelled = model.Cancelled()
		if rep == nil && runErr == nil {
			fmt.Fprintln(stderr, "Cancelled before the run finished.")
			return exitFailure
		}
	} else {
		rep, runErr = svc.Run(ctx, args.Request)
	}

	var usageErr *models.UsageError
	if errors.As(runErr, &usageErr) {
		fmt.Fprintf(stderr, "Error: %v\n", usageErr)
		return exitUsage
	}

	fmt.Fprint(stdout, report.Render(rep, report.Options{
		Width: terminalWidth(out),
		Chart: args.Chart,
		Plain: args.Plain || !tty,
	}))

	switch {
	case cancelled:
		fmt.Fprintln(stderr, "Cancelled.")
		return exitFailure
	case runErr != nil:
		logger.Error("run failed", "error", runErr)
		return exitFailure
	}
	return exitOK
}

// runTUI runs the download under the progress UI. Logs go to a file next to
// the ledger while the UI owns the terminal.
func runTUI(ctx context.Context, cfg *config.Config, mgr *services.Manager, req models.Request, stderr io.Writer) (*app.Model, error) {
	logDir := os.TempDir()
	if cfg.DatabasePath != "" {
		logDir = filepath.Dir(cfg.DatabasePath)
	}
	logFile, err := os.OpenFile(filepath.Join(logDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		logger.SetOutput(io.Discard)
	} else {
		logger.SetOutput(logFile)
	}

	model := app.NewModel(ctx, mgr.Download(), req)
	_, runErr := tea.NewProgram(model).Run()

	// A second quit leaves the run unwinding; the ledger and log file stay
	// open until it returns.
	stopped := model.Wait(runStopTimeout)
	logger.SetOutput(stderr)
	if !stopped {
		logger.Warn("run still stopping, closing anyway", "timeout", runStopTimeout)
	} else if logFile != nil {
		_ = logFile.Close()
	}

	if runErr != nil {
		return nil, runErr
	}
	return model, nil
}

func runHistory(ctx context.Context, mgr *services.Manager, args *cli.Args, stdout, stderr io.Writer) int {
	if args.PruneKeep > 0 {
		n, err := mgr.Prune(ctx, args.PruneKeep)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "Pruned %d runs\n", n)
	}

	runs, err := mgr.History(ctx, args.HistoryLimit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	out, tty := terminal(stdout)
	fmt.Fprint(stdout, report.RenderHistory(runs, report.Options{
		Width: terminalWidth(out),
		Plain: args.Plain || !tty,
	}))

	stats, err := mgr.Stats(ctx)
	if err != nil {
		logger.Warn("ledger stats unavailable", "error", err)
		return exitOK
	}
	fmt.Fprint(stdout, report.RenderStats(stats))
	return exitOK
}

func runToken(cfg *config.Config, stdout, stderr io.Writer) int {
	set, err := garmin.LoadTokens(cfg.TokenStorePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	tok := set.OAuth2
	fmt.Fprintf(stdout, "Token store: %s\n", set.Source)
	fmt.Fprintf(stdout, "Token type:  %s\n", tokenType(tok))

	switch {
	case tok.ExpiresAt == 0:
		fmt.Fprintln(stdout, "Expires:     unknown")
	case tok.IsValid(timeNow()):
		fmt.Fprintf(stdout, "Expires:     %s (%s)\n",
			tok.Expiry().Local().Format("2006-01-02 15:04"), humanize.Time(tok.Expiry()))
	default:
		fmt.Fprintf(stdout, "Expires:     %s\n",
			styles.ErrorTextStyle.Render("expired "+humanize.Time(tok.Expiry())))
	}

	switch {
	case set.Refreshable():
		fmt.Fprintln(stdout, "OAuth1:      present (expired access tokens are refreshed)")
	case set.OAuth1 != nil:
		fmt.Fprintln(stdout, "OAuth1:      incomplete")
	default:
		fmt.Fprintln(stdout, "OAuth1:      missing")
	}

	if !tok.IsValid(timeNow()) && !set.Refreshable() {
		return exitFailure
	}
	return exitOK
}

func tokenType(tok *garmin.OAuth2Token) string {
	if tok.TokenType == "" {
		return "Bearer"
	}
	return tok.TokenType
}

// terminal reports whether w is an interactive terminal.
func terminal(w io.Writer) (*os.File, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return nil, false
	}
	return f, isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func terminalWidth(f *os.File) int {
	if f == nil {
		return 0
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil {
		return 0
	}
	return width
}
