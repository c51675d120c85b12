package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memvault/internal/config"
	"github.com/nextlevelbuilder/memvault/internal/mcpserver"
	"github.com/nextlevelbuilder/memvault/internal/storage"
	"github.com/nextlevelbuilder/memvault/internal/sweeper"
	"github.com/nextlevelbuilder/memvault/internal/tools"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the memory store over MCP on stdio",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			ctx := context.Background()

			// Build the index up front so the first search is fast.
			if err := mgr.EnsureIndexed(ctx); err != nil {
				fatal(err)
			}

			registry := tools.NewRegistry()
			registerMemoryTools(registry, mgr)

			limiter := tools.NewToolRateLimiter(cfg.RateLimitPerMinute)
			if limiter != nil {
				registry.SetRateLimiter(limiter)
			}

			var sweep *sweeper.Service
			if cfg.Sweep.Enabled {
				var err error
				sweep, err = sweeper.New(mgr, cfg.Sweep.Schedule, cfg.Sweep.DaysInactive, cfg.Sweep.MinEntries)
				if err != nil {
					fatal(err)
				}
				sweep.Start(ctx)
				defer sweep.Stop()
			}

			startConfigWatcher(mgr, limiter, sweep)

			srv := mcpserver.New(registry)
			if err := srv.ServeStdio(); err != nil {
				fatal(err)
			}
		},
	}
}

func registerMemoryTools(registry *tools.Registry, mgr *storage.Manager) {
	registry.Register(tools.NewMemorySaveTool(mgr))
	registry.Register(tools.NewMemoryReadTool(mgr))
	registry.Register(tools.NewMemorySearchTool(mgr))
	registry.Register(tools.NewMemoryListTool(mgr))
	registry.Register(tools.NewMemoryDeleteTool(mgr))
	registry.Register(tools.NewMemoryTagTool(mgr))
	registry.Register(tools.NewMemoryGroupTool(mgr))
	registry.Register(tools.NewMemoryCompressTool(mgr))
	registry.Register(tools.NewMemoryDecompressTool(mgr))
	registry.Register(tools.NewMemoryArchiveTool(mgr))
	registry.Register(tools.NewMemoryRestoreTool(mgr))
	registry.Register(tools.NewMemoryArchiveCandidatesTool(mgr))
}

// startConfigWatcher hot-reloads the tunables that can change at runtime:
// compression threshold, rate limit, and sweep settings.
func startConfigWatcher(mgr *storage.Manager, limiter *tools.ToolRateLimiter, sweep *sweeper.Service) {
	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		slog.Warn("config watcher unavailable", "error", err)
		return
	}

	watcher.OnChange(func(cfg *config.Config) {
		mgr.Compressor().SetThreshold(cfg.CompressionThreshold)
		if limiter != nil {
			limiter.SetRate(cfg.RateLimitPerMinute)
		}
		if sweep != nil {
			if err := sweep.Reconfigure(cfg.Sweep.Schedule, cfg.Sweep.DaysInactive, cfg.Sweep.MinEntries); err != nil {
				slog.Warn("sweep reconfigure rejected", "error", err)
			}
		}
	})

	if err := watcher.Start(); err != nil {
		slog.Warn("config watcher failed to start", "error", err)
	}
}
