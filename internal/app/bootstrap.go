// Package app wires the client together at startup.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tradersatmichigan/zingers-redux/internal/event"
	"github.com/tradersatmichigan/zingers-redux/internal/infra"
	"github.com/tradersatmichigan/zingers-redux/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config    *infra.Config
	Journal   *storage.Journal // nil when journaling is disabled
	Snapshots *storage.SnapshotManager
	Session   string

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: env, config, logger,
// workspace directories, instance lock, and the session journal.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping zingers client...")

	// Runtime warmup before any venue traffic arrives.
	event.Warmup()

	// .env is optional; deployment envs set real variables.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	infra.PrintBanner(cfg)

	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data")
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// Two clients sharing one journal would corrupt the replay log.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	b.Session = uuid.NewString()
	b.Snapshots = storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))

	if cfg.Session.Journal {
		dbPath := filepath.Join(dataDir, "journal.db")
		journal, err := storage.NewJournal(dbPath, b.Session)
		if err != nil {
			return err
		}
		b.Journal = journal
		slog.Info("✅ Journal initialized (WAL-mode)",
			"path", dbPath, "session", b.Session)
	}

	return nil
}

// Shutdown releases everything Initialize acquired.
func (b *Bootstrap) Shutdown() {
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Warn("journal close failed", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
