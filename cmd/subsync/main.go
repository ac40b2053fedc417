package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"

	subhttp "github.com/akarol/subsync/http"
	subslog "github.com/akarol/subsync/slog"
	"github.com/akarol/subsync/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path for cache and sync state. Set before calling Run().
	DBPath string

	// OutDir is the archive output directory.
	OutDir string

	// SQLite database used by storage service implementations.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
		OutDir: defaultOutDir(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		OutDir: m.OutDir,
	}

	parser, err := kong.New(cli,
		kong.Name("subsync"),
		kong.Description("Archive Substack newsletters to local markdown."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'subsync --help' to see available commands")
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	deps.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if dir := filepath.Dir(m.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set SUBSYNC_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	deps.DB = m.DB
	deps.Cache = subslog.NewLoggingCacheStore(sqlite.NewCacheStore(m.DB), deps.Logger)
	deps.SyncStates = sqlite.NewSyncStateService(m.DB)
	deps.Transport = subslog.NewLoggingTransport(subhttp.NewTransport(), deps.Logger)

	return kongCtx.Run(deps)
}

// defaultDBPath resolves the database location: $SUBSYNC_DB, or
// ~/.subsync/subsync.db.
func defaultDBPath() string {
	if path := os.Getenv("SUBSYNC_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "subsync.db"
	}
	return filepath.Join(home, ".subsync", "subsync.db")
}

// defaultOutDir resolves the archive directory: $SUBSYNC_DIR, or
// ./archive.
func defaultOutDir() string {
	if dir := os.Getenv("SUBSYNC_DIR"); dir != "" {
		return dir
	}
	return "archive"
}
