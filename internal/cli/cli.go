package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"tonearm.click/internal/audio"
	"tonearm.click/internal/config"
	"tonearm.click/internal/fs"
	"tonearm.click/internal/toolbox"
	"tonearm.click/internal/tracking"
)

const Version = "0.4.0"

// ErrHistoryDisabled is returned by commands that need the decode history
// when it is turned off or could not be opened
var ErrHistoryDisabled = errors.New("decode history is disabled or unavailable")

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	fs               afero.Fs
	configManager    *config.ConfigManager
	registry         *audio.Registry
	terminalDetector TerminalDetector

	cfg       *config.Config
	historyDB *sql.DB
	tracker   *tracking.Tracker
}

// NewCLI creates a CLI working on the real filesystem
func NewCLI() *CLI {
	return NewCLIWithFilesystem(fs.NewDefaultFactory().Production())
}

// NewCLIWithFilesystem creates a CLI that reads audio and config files
// through filesystem
func NewCLIWithFilesystem(filesystem afero.Fs) *CLI {
	c := &CLI{
		fs:               filesystem,
		configManager:    config.NewConfigManagerWithFilesystem(filesystem),
		registry:         audio.NewDefaultRegistry(),
		terminalDetector: &DefaultTerminalDetector{},
	}

	rootCmd := &cobra.Command{
		Use:   "tonearm",
		Short: "Inspect and decode audio files",
		Long: `tonearm opens audio files through a uniform decoder, reports their stream
formats, and decodes them to WAV. Every decode session is recorded in a local
history database unless history is disabled.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: persistentSetupE,
	}
	rootCmd.SetVersionTemplate("tonearm version {{.Version}}\n")

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("no-history", false, "Do not record or read the decode history")

	rootCmd.AddCommand(newInfoCommand())
	rootCmd.AddCommand(newDecodeCommand())
	rootCmd.AddCommand(newFormatsCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newConfigCommand())

	c.rootCmd = rootCmd
	return c
}

type cliContextKey struct{}

// contextWithCLI stores CLI instance in context for command handlers
func contextWithCLI(cli *CLI) context.Context {
	return context.WithValue(context.Background(), cliContextKey{}, cli)
}

// cliFromContext extracts CLI instance from context
func cliFromContext(ctx context.Context) *CLI {
	if cli, ok := ctx.Value(cliContextKey{}).(*CLI); ok {
		return cli
	}
	return nil
}

func mustCLI(cmd *cobra.Command) (*CLI, error) {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return nil, fmt.Errorf("CLI instance not found in context")
	}
	return cli, nil
}

// persistentSetupE loads configuration and configures logging before any
// subcommand runs
func persistentSetupE(cmd *cobra.Command, args []string) error {
	cli, err := mustCLI(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	cli.cfg = cfg
	setupLogging(cli.configManager, cfg, cmd.ErrOrStderr())
	return nil
}

// loadAndValidateConfig loads configuration from flags and files, applies
// overrides, and validates
func loadAndValidateConfig(cmd *cobra.Command, cli *CLI) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	cfg, err := cli.configManager.LoadConfigFrom(configFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	cfg = cli.configManager.ApplyEnvironmentOverrides(cfg)

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if noHistory {
		cfg.History.Enabled = false
	}

	if err := cli.configManager.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Run executes the CLI with the given arguments and I/O streams
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	defer c.closeHistory()

	if len(args) > 0 {
		args = args[1:] // Skip program name
	}
	c.rootCmd.SetArgs(args)
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)
	c.rootCmd.SetContext(contextWithCLI(c))

	if err := c.rootCmd.Execute(); err != nil {
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}

// setupLogging sends records at the configured level to stderr and, when
// file logging is enabled, records at info or below to a rotating log file
func setupLogging(cm *config.ConfigManager, cfg *config.Config, stderrWriter io.Writer) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderrWriter, &slog.HandlerOptions{Level: level}),
	}

	if cfg.FileLogging != nil && cfg.FileLogging.Enabled {
		logFilePath := cm.ResolveLogFilePath(cfg.FileLogging.Filename)
		logDir := filepath.Dir(logFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			// Continue without file logging
			slog.Error("failed to create log directory", "path", logDir, "error", err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    cfg.FileLogging.MaxSizeMB,
				MaxBackups: cfg.FileLogging.MaxBackups,
				MaxAge:     cfg.FileLogging.MaxAgeDays,
				Compress:   cfg.FileLogging.Compress,
			}
			handlers = append(handlers, slog.NewTextHandler(fileWriter, &slog.HandlerOptions{
				Level: min(level, slog.LevelInfo),
			}))
		}
	}

	slog.SetDefault(slog.New(NewMultiLevelHandler(handlers...)))

	slog.Debug("logging setup completed",
		"level", level.String(),
		"handlers", len(handlers),
		"file_enabled", len(handlers) > 1)
}

// historyDatabase opens the decode history on first use. It returns nil
// when history is disabled or the database cannot be opened.
func (c *CLI) historyDatabase() *sql.DB {
	if c.historyDB != nil {
		return c.historyDB
	}
	if c.cfg == nil || c.cfg.History == nil || !c.cfg.History.Enabled {
		return nil
	}

	dbPath := c.configManager.ResolveDatabasePath(c.cfg.History.DatabasePath)
	db, err := tracking.NewDatabase(dbPath)
	if err != nil {
		slog.Error("failed to open decode history, continuing without it", "path", dbPath, "error", err)
		return nil
	}

	c.historyDB = db
	slog.Debug("decode history opened", "path", dbPath)
	return db
}

func (c *CLI) closeHistory() {
	if c.historyDB == nil {
		return
	}
	if err := c.historyDB.Close(); err != nil {
		slog.Error("error closing decode history", "error", err)
	}
	c.historyDB = nil
	c.tracker = nil
}

// eventTracker fans decode sessions out to the log and, when history is
// available, to the database
func (c *CLI) eventTracker() *tracking.Tracker {
	if c.tracker != nil {
		return c.tracker
	}

	opts := []tracking.TrackerOption{tracking.WithHook(tracking.NewSlogHook(nil).GetHook())}
	if db := c.historyDatabase(); db != nil {
		opts = append(opts, tracking.WithHook(tracking.NewRecorder(db, "").GetHook()))
	} else {
		opts = append(opts, tracking.WithHook(tracking.NewNopHook().GetHook()))
	}
	c.tracker = tracking.NewTracker(opts...)
	return c.tracker
}

// openedFile is a decoder together with the source it reads
type openedFile struct {
	path    string
	source  audio.ByteSource
	decoder audio.Decoder
}

func (f *openedFile) Close() {
	if f.decoder != nil && f.decoder.IsOpen() {
		f.decoder.Close()
	}
	if err := f.source.Close(); err != nil {
		slog.Warn("closing source failed", "path", f.path, "error", err)
	}
}

// openFile resolves path, picks a decoder variant for it and opens it
func (c *CLI) openFile(path string) (*openedFile, error) {
	resolved, err := audio.NewFileResolver(c.fs, c.registry.SupportedExtensions()).Resolve(path)
	if err != nil {
		return nil, err
	}

	f := &openedFile{path: resolved, source: audio.NewFileSource(c.fs, resolved)}
	dec, err := c.registry.NewDecoderForSource(f.source)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := dec.Open(); err != nil {
		f.Close()
		return nil, err
	}
	f.decoder = dec
	return f, nil
}

// fileTyper is implemented by decoders that expose their container type
type fileTyper interface {
	FileType() toolbox.FileType
	UsesManualPosition() bool
}

// record emits a decode session for path. dec may be nil when opening
// failed.
func (c *CLI) record(command, path string, f *openedFile, framesDecoded int64, runErr error, extra map[string]any) {
	event := &tracking.DecodeEvent{
		Command:     command,
		SourceURL:   path,
		TotalFrames: -1,
		Context:     extra,
	}

	if f != nil && f.decoder != nil && f.decoder.IsOpen() {
		dec := f.decoder
		event.SourceURL = f.path
		event.SourceFormat = dec.SourceFormat().String()
		event.ClientFormat = dec.Format().String()
		event.TotalFrames = dec.TotalFrames()
		if ft, ok := dec.(fileTyper); ok {
			event.FileType = toolbox.FileTypeName(ft.FileType())
			event.PositionMode = positionModeName(ft.UsesManualPosition())
		}
	}
	event.FramesDecoded = framesDecoded

	if runErr != nil {
		event.Error = runErr.Error()
		event.ErrorCode = tracking.ErrorCodeOther
		var decErr *audio.DecoderError
		if errors.As(runErr, &decErr) {
			event.ErrorCode = int(decErr.Code)
		}
	}

	c.eventTracker().Emit(event)
}

func positionModeName(manual bool) string {
	if manual {
		return "manual"
	}
	return "native"
}
