package main

import (
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/session"
	"storefront/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// sessionCmd prints a session token for scripted use.
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Print a session token",
	Long: `Prints the session token the scripted commands would use: --session,
then STOREFRONT_SESSION, else a freshly minted one.

  export STOREFRONT_SESSION=$(shop session)`,
	RunE: runSession,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file into the workspace",
	RunE:  runConfigInit,
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	tab := store.NewMemoryStore()
	if tok := resolveSession(); tok != "" {
		if err := tab.Set(session.StorageKey, tok); err != nil {
			return err
		}
	}
	tok, err := session.GetOrCreateSessionID(tab)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	cfg, path, err := loadConfig(ws)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	path := resolveConfigPath(ws)
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("config already exists: %s (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
