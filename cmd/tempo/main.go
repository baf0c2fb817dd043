package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/tartampluch/go-tempo/internal/config"
)

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
// os.Exit() does not run defers, so we must return an integer code first.
func main() {
	os.Exit(runMain(os.Args[1:], os.Stdout, os.Stderr))
}

// runMain binds the process signals to a context and runs the command line.
func runMain(args []string, stdout, stderr io.Writer) int {
	// Create a root context that cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return execute(ctx, args, stdout, stderr)
}

// CLI is the root of the command line.
type CLI struct {
	Debug   bool             `help:"${help_debug}"`
	Lang    string           `help:"${help_lang}" placeholder:"LANG"`
	Version kong.VersionFlag `help:"${help_version}"`

	Sample  SampleCmd  `cmd:"" help:"${help_sample}"`
	Serve   ServeCmd   `cmd:"" help:"${help_serve}"`
	Easings EasingsCmd `cmd:"" help:"${help_easings}"`
}

// exitRequest carries the code kong asks to exit with (after --help or --version).
type exitRequest int

// execute parses args, configures logging and runs the selected command.
// Returns config.ExitCodeSuccess on success, config.ExitCodeError on failure.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	defer func() {
		if r := recover(); r != nil {
			req, ok := r.(exitRequest)
			if !ok {
				panic(r)
			}
			code = int(req)
		}
	}()

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name(config.BinaryName),
		kong.Description(config.AppDescription),
		kong.Writers(stdout, stderr),
		kong.Exit(func(c int) { panic(exitRequest(c)) }),
		cliVars(),
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return config.ExitCodeError
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return config.ExitCodeError
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	logCloser := setupLogging(cli.Debug, stderr)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 3. Command
	// -------------------------------------------------------------------------
	app := newApp(ctx, stdout, cli.Lang)
	if err := kctx.Run(app); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", config.BinaryName, err)
		return config.ExitCodeError
	}

	slog.Debug(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// cliVars feeds help texts and defaults to the struct tags.
func cliVars() kong.Vars {
	return kong.Vars{
		"version":      strings.TrimSpace(versionString()),
		"help_debug":   config.FlagDescDebug,
		"help_lang":    config.FlagDescLang,
		"help_version": config.FlagDescVersion,
		"help_sample":  config.FlagDescSample,
		"help_serve":   config.FlagDescServe,
		"help_easings": config.FlagDescEasings,
		"help_expr":    config.FlagDescExpr,
		"help_url":     config.FlagDescURL,
		"help_from":    config.FlagDescFrom,
		"help_to":      config.FlagDescTo,
		"help_step":    config.FlagDescStep,
		"help_format":  config.FlagDescFormat,
		"help_config":  config.FlagDescConfig,
		"help_port":    config.FlagDescPort,

		"default_from":   strconv.FormatFloat(config.DefaultFrom, 'g', -1, 64),
		"default_to":     strconv.FormatFloat(config.DefaultTo, 'g', -1, 64),
		"default_step":   strconv.FormatFloat(config.DefaultStep, 'g', -1, 64),
		"default_format": config.DefaultFormat,
		"formats":        strings.Join([]string{config.FormatTable, config.FormatJSON, config.FormatCSV}, ","),
	}
}

// versionString formats the build information.
func versionString() string {
	return fmt.Sprintf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		config.Commit,
		config.Date,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Debug(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
// Logs go to the console writer (stderr, stdout carries command output) and
// to a file in the user's cache directory.
func setupLogging(debugMode bool, console io.Writer) io.Closer {
	writers := []io.Writer{console}
	var logFile *os.File

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			_, _ = fmt.Fprintf(console, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)

	// Ensure the directory exists with restricted permissions (700).
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
