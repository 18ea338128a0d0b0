package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/tavla/internal/adapters/server"
	"github.com/hylla/tavla/internal/adapters/storage/jsonfile"
	"github.com/hylla/tavla/internal/adapters/storage/sqlite"
	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/config"
	"github.com/hylla/tavla/internal/platform"
)

// version stores a package-level helper value.
var version = "dev"

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("tavla", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		statePath  string
		appName    string
		devMode    bool
		showVer    bool
	)
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TAVLA_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TAVLA_APP_NAME")); envApp != "" {
		appName = envApp
	} else {
		appName = "tavla"
	}
	fs.StringVar(&configPath, "config", "", "path to config TOML")
	fs.StringVar(&statePath, "state", "", "path to the board state file or database")
	fs.StringVar(&appName, "app", appName, "application name for config/data path resolution")
	fs.BoolVar(&devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	fs.BoolVar(&showVer, "version", false, "show version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVer {
		_, _ = fmt.Fprintf(stdout, "tavla %s\n", version)
		return nil
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: appName,
		DevMode: devMode,
	})
	if err != nil {
		return err
	}

	command := firstArg(fs.Args())
	switch command {
	case "paths":
		_, _ = fmt.Fprintf(stdout, "app: %s\n", appName)
		_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", devMode)
		_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
		_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
		_, _ = fmt.Fprintf(stdout, "state: %s\n", paths.StatePath)
		_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
		return nil
	case "", "serve", "export", "import", "stats":
		// Continue.
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	stateOverridden := strings.TrimSpace(statePath) != ""
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TAVLA_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	if !stateOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TAVLA_STATE_PATH")); envPath != "" {
			statePath = envPath
			stateOverridden = true
		}
	}

	defaultCfg := config.Default(paths.StatePath)
	cfg, err := config.Load(configPath, defaultCfg)
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	// A config that switches to sqlite without naming a path keeps the
	// platform-default database location.
	if cfg.Storage.Backend == config.StorageBackendSQLite && cfg.Storage.Path == defaultCfg.Storage.Path {
		cfg.Storage.Path = paths.DBPath
	}
	if stateOverridden {
		cfg.Storage.Path = statePath
	}

	logger, err := newRuntimeLogger(stderr, appName, devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.shouldLogToSink(logger.consoleSink) {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", appName, "dev_mode", devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "state_path", cfg.Storage.Path)
	logger.Info("configuration loaded", "config_path", configPath, "backend", string(cfg.Storage.Backend), "state_path", cfg.Storage.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	store, closeStore, err := openStore(cfg.Storage, logger)
	if err != nil {
		logger.Error("store open failed", "backend", string(cfg.Storage.Backend), "path", cfg.Storage.Path, "err", err)
		return fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			logger.Warn("store close failed", "path", cfg.Storage.Path, "err", closeErr)
		}
	}()

	svc := app.NewService(store, uuid.NewString, nil, logger, app.ServiceConfig{
		SeedDemo: cfg.Board.SeedDemo,
	})
	svc.Load(ctx)
	logger.Debug("application service initialized", "seed_demo", cfg.Board.SeedDemo)

	switch command {
	case "", "serve":
		logger.Info("command flow start", "command", "serve")
		if err := runServe(ctx, svc, cfg.Server, appName); err != nil {
			logger.Error("command flow failed", "command", "serve", "err", err)
			return fmt.Errorf("run serve command: %w", err)
		}
		logger.Info("command flow complete", "command", "serve")
		return nil
	case "export":
		logger.Info("command flow start", "command", "export")
		if err := runExport(svc, logger, fs.Args()[1:], stdout); err != nil {
			logger.Error("command flow failed", "command", "export", "err", err)
			return fmt.Errorf("run export command: %w", err)
		}
		logger.Info("command flow complete", "command", "export")
		return nil
	case "import":
		logger.Info("command flow start", "command", "import")
		if err := runImport(ctx, svc, fs.Args()[1:], stdout); err != nil {
			logger.Error("command flow failed", "command", "import", "err", err)
			return fmt.Errorf("run import command: %w", err)
		}
		logger.Info("command flow complete", "command", "import")
		return nil
	case "stats":
		logger.Info("command flow start", "command", "stats")
		if err := runStats(ctx, svc, fs.Args()[1:], stdout); err != nil {
			logger.Error("command flow failed", "command", "stats", "err", err)
			return fmt.Errorf("run stats command: %w", err)
		}
		logger.Info("command flow complete", "command", "stats")
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// openStore builds the configured persistence adapter and its close hook.
func openStore(cfg config.StorageConfig, logger app.Logger) (app.Store, func() error, error) {
	switch cfg.Backend {
	case config.StorageBackendSQLite:
		logger.Info("opening sqlite store", "path", cfg.Path)
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite store ready", "path", cfg.Path, "migrations", "ensured")
		return store, store.Close, nil
	case config.StorageBackendJSON:
		logger.Info("opening json state file store", "path", cfg.Path)
		store, err := jsonfile.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}

// runServe blocks on the combined HTTP API and MCP server until shutdown.
func runServe(ctx context.Context, svc *app.Service, cfg config.ServerConfig, appName string) error {
	return server.Run(ctx, server.Config{
		HTTPBind:      cfg.Bind,
		APIEndpoint:   cfg.APIEndpoint,
		MCPEndpoint:   cfg.MCPEndpoint,
		ServerName:    appName,
		ServerVersion: version,
	}, server.Dependencies{Boards: svc})
}

// runExport runs the requested command flow.
func runExport(svc *app.Service, logger *runtimeLogger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tavla export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var outPath string
	fs.StringVar(&outPath, "out", "kanban.json", "output file path ('-' for stdout)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse export flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected export arguments: %v", fs.Args())
	}

	encoded, err := svc.ExportState()
	if err != nil {
		return fmt.Errorf("export state: %w", err)
	}

	if outPath == "-" {
		// Keep piped output clean of console log lines.
		logger.SetConsoleEnabled(false)
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write state to stdout: %w", err)
		}
		return nil
	}
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export output dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport runs the requested command flow.
func runImport(ctx context.Context, svc *app.Service, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tavla import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var inPath string
	fs.StringVar(&inPath, "in", "", "input state JSON file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse import flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected import arguments: %v", fs.Args())
	}
	if inPath == "" {
		return fmt.Errorf("--in is required")
	}

	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	imported, err := svc.ImportState(ctx, content)
	if err != nil {
		return fmt.Errorf("import state: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "imported %d boards\n", imported)
	return nil
}

// runStats runs the requested command flow.
func runStats(ctx context.Context, svc *app.Service, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tavla stats", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var boardID string
	fs.StringVar(&boardID, "board", "", "board id (defaults to the active board)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse stats flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected stats arguments: %v", fs.Args())
	}

	var (
		stats app.BoardStats
		err   error
	)
	if boardID == "" {
		stats, err = svc.ActiveBoardStats(ctx)
	} else {
		stats, err = svc.BoardStats(ctx, boardID)
	}
	if err != nil {
		return fmt.Errorf("board stats: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "board: %s\n", stats.BoardID)
	_, _ = fmt.Fprintf(stdout, "title: %s\n", stats.Title)
	_, _ = fmt.Fprintf(stdout, "start_date: %s\n", stats.StartDate.Format("2006-01-02"))
	_, _ = fmt.Fprintf(stdout, "days_active: %d\n", stats.DaysActive)
	_, _ = fmt.Fprintf(stdout, "created: %d\n", stats.Created)
	_, _ = fmt.Fprintf(stdout, "done: %d\n", stats.Done)
	_, _ = fmt.Fprintf(stdout, "in_progress: %d\n", stats.InProgress)
	_, _ = fmt.Fprintf(stdout, "bugs: %d\n", stats.Bugs)
	_, _ = fmt.Fprintf(stdout, "deleted: %d\n", stats.Deleted)
	_, _ = fmt.Fprintf(stdout, "sprint_progress: %d%%\n", stats.SprintProgress)
	_, _ = fmt.Fprintf(stdout, "weekly_throughput: %d\n", stats.WeeklyThroughput)
	_, _ = fmt.Fprintf(stdout, "avg_resolution: %s\n", stats.AvgResolutionLabel())
	return nil
}

// firstArg handles first arg.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// runtimeLogger fans log events to a styled console sink and an optional dev-file sink.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
	devLog         string
}

// newRuntimeLogger configures runtime log sinks from CLI/config state.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	levelName := strings.TrimSpace(cfg.Level)
	if levelName == "" {
		levelName = "info"
	}
	level, err := charmLog.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}

	if now == nil {
		now = time.Now
	}
	if stderr == nil {
		stderr = io.Discard
	}

	consoleLogger := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})

	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{consoleLogger},
		consoleSink:    consoleLogger,
		consoleEnabled: true,
	}
	if !devMode {
		return logger, nil
	}

	devLogPath, err := devLogFilePath(cfg.DevFile, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(devLogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	logFile, err := os.OpenFile(devLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}

	// Keep file output parseable and unstyled while preserving styled console logs.
	fileLogger := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	logger.sinks = append(logger.sinks, fileLogger)
	logger.closeFile = logFile.Close
	logger.devLog = devLogPath
	return logger, nil
}

// DevLogPath returns the active dev log file path.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

// Close closes the optional dev-file sink.
func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// SetConsoleEnabled toggles whether the console sink receives runtime events.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.consoleEnabled = enabled
}

// shouldLogToSink reports whether one sink should receive runtime output.
func (l *runtimeLogger) shouldLogToSink(sink *charmLog.Logger) bool {
	if l == nil {
		return false
	}
	if sink == nil {
		return false
	}
	if sink == l.consoleSink && !l.consoleEnabled {
		return false
	}
	return true
}

// Debug logs a debug event to all configured sinks.
func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Debug(msg, keyvals...)
	}
}

// Info logs an informational event to all configured sinks.
func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Info(msg, keyvals...)
	}
}

// Warn logs a warning event to all configured sinks.
func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Warn(msg, keyvals...)
	}
}

// Error logs an error event to all configured sinks.
func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Error(msg, keyvals...)
	}
}

// devLogFilePath resolves a workspace-local dev log file path for the current run day.
func devLogFilePath(configDir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(configDir)
	if baseDir == "" {
		baseDir = ".tavla/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(workspaceRootFrom(cwd), baseDir)
	}
	fileStem := sanitizeLogFileStem(appName)
	fileName := fmt.Sprintf("%s-%s.log", fileStem, now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), fileName), nil
}

// workspaceRootFrom resolves the nearest ancestor workspace marker for stable local log placement.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	if start == "" {
		return "."
	}
	dir := start
	for {
		if hasWorkspaceMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// hasWorkspaceMarker reports whether a directory looks like a project workspace root.
func hasWorkspaceMarker(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	return false
}

// sanitizeLogFileStem normalizes app names into safe file-name segments.
func sanitizeLogFileStem(appName string) string {
	stem := strings.TrimSpace(appName)
	if stem == "" {
		return "tavla"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem = strings.Trim(replacer.Replace(stem), "-")
	if stem == "" {
		return "tavla"
	}
	return stem
}
