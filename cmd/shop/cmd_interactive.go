package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/cmd/shop/ui"
	"storefront/internal/api"
	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/logging"

	"github.com/spf13/cobra"
)

// runInteractive opens the terminal shop. Category logs go to
// .storefront/logs when logging.debug_mode is on; the config file is watched
// and logging settings follow edits without a restart.
func runInteractive(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return fmt.Errorf("failed to resolve workspace: %w", err)
	}
	cfg, path, err := loadConfig(ws)
	if err != nil {
		return err
	}

	if err := logging.Initialize(ws, cfg.Logging.Settings(false)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer logging.CloseAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logging.Boot("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	metrics := api.NewMetrics()
	stopMetrics := serveMetrics(cfg.Metrics.Addr, metrics)
	defer stopMetrics()

	a, err := app.New(app.Options{
		Workspace:    ws,
		Config:       cfg,
		SessionToken: resolveSession(),
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := config.NewWatcher(path, func(next *config.Config) {
		logging.Configure(next.Logging.Settings(false))
	})
	if err != nil {
		logging.ConfigWarn("config watcher unavailable: %v", err)
	} else if err := watcher.Start(ctx); err != nil {
		logging.ConfigWarn("config watcher not started: %v", err)
		watcher.Stop()
	} else {
		defer watcher.Stop()
	}

	styles := ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)).WithCurrency(cfg.UI.CurrencySymbol())

	start := "/"
	if len(args) > 0 {
		start = args[0]
	}
	return ui.Run(ctx, a, styles, start)
}
