// Package cmd implements the memvault command-line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memvault/internal/archive"
	"github.com/nextlevelbuilder/memvault/internal/compress"
	"github.com/nextlevelbuilder/memvault/internal/config"
	"github.com/nextlevelbuilder/memvault/internal/stats"
	"github.com/nextlevelbuilder/memvault/internal/storage"
)

var (
	configPath string
	verbose    bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memvault",
		Short: "Persistent memory store for conversational agents",
		Long: `memvault stores named memory slots of text entries with TF-IDF search,
compression, archival, and tag/group metadata. Run "memvault serve" to
expose the store to agents over MCP (stdio).`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(saveCmd())
	cmd.AddCommand(readCmd())
	cmd.AddCommand(searchCmd())
	cmd.AddCommand(slotsCmd())
	cmd.AddCommand(archiveCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(statsCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	return cfg
}

// openManager builds the storage stack from config: compressor, archiver,
// optional stats recorder, and the manager itself. The caller owns closing
// the returned recorder (may be nil).
func openManager(cfg *config.Config) (*storage.Manager, *stats.Recorder) {
	compressor := compress.NewCompressor(cfg.CompressionThreshold)

	archiver, err := archive.NewManager(cfg.ArchiveDir, compressor)
	if err != nil {
		fatal(err)
	}

	var recorder *stats.Recorder
	if cfg.StatsDB != "" {
		recorder, err = stats.Open(cfg.StatsDB)
		if err != nil {
			// Stats are best-effort; run without them.
			slog.Warn("stats db unavailable", "error", err)
			recorder = nil
		}
	}

	mgr, err := storage.NewManager(storage.Options{
		MemoryDir:  cfg.MemoryDir,
		Compressor: compressor,
		Archiver:   archiver,
		Recorder:   recorder,
	})
	if err != nil {
		fatal(err)
	}
	return mgr, recorder
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}
