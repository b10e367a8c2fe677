package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"storefront/internal/api"
	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SessionEnv names the environment variable that pre-seeds the session token.
const SessionEnv = "STOREFRONT_SESSION"

var (
	// Global flags
	verbose     bool
	workspace   string
	configPath  string
	sessionID   string
	metricsAddr string
	timeout     time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shop [path]",
	Short: "MyShop - terminal storefront",
	Long: `shop is a terminal client for the MyShop storefront API.

Run without a subcommand to open the interactive shop. An optional path picks
the first page: /, /about, /cart or /payment.

Subcommands script the same operations for use from a shell. Pass --session
(or set STOREFRONT_SESSION) to keep one cart across invocations.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it owns the terminal)
		if cmd == cmd.Root() {
			logger = zap.NewNop()
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInteractive,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.storefront/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "Session token (or set "+SessionEnv+")")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve API client metrics on this address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout for scripted commands")

	registerStoreCommands(rootCmd)
	registerCheckoutCommands(rootCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveWorkspace returns the --workspace flag or the current directory.
func resolveWorkspace() (string, error) {
	if workspace != "" {
		return filepath.Abs(workspace)
	}
	return os.Getwd()
}

// resolveConfigPath returns --config or the workspace default.
func resolveConfigPath(ws string) string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath(ws)
}

// loadConfig loads the workspace config and applies flag overrides.
func loadConfig(ws string) (*config.Config, string, error) {
	path := resolveConfigPath(ws)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	return cfg, path, nil
}

// resolveSession returns --session, then STOREFRONT_SESSION.
func resolveSession() string {
	if sessionID != "" {
		return sessionID
	}
	return os.Getenv(SessionEnv)
}

// openApp loads config, routes category logs to stderr and wires the App. The
// caller must Close the App and call logging.CloseAll.
func openApp() (*app.App, error) {
	ws, err := resolveWorkspace()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	cfg, path, err := loadConfig(ws)
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(ws, cfg.Logging.Settings(true)); err != nil {
		return nil, err
	}
	logger.Debug("Config loaded", zap.String("path", path), zap.String("api", cfg.API.BaseURL))

	return app.New(app.Options{
		Workspace:    ws,
		Config:       cfg,
		SessionToken: resolveSession(),
	})
}

// serveMetrics starts the Prometheus listener when addr is set. The returned
// stop func shuts it down.
func serveMetrics(addr string, m *api.Metrics) (stop func()) {
	if addr == "" || m == nil {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.BootError("metrics listener on %s: %v", addr, err)
		}
	}()
	logging.Boot("metrics on http://%s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
