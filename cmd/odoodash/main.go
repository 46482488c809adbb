package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/henri123lemoine/odoodash/internal/app"
	"github.com/henri123lemoine/odoodash/internal/config"
	"github.com/henri123lemoine/odoodash/internal/debug"
	"github.com/henri123lemoine/odoodash/internal/mcp"
	"github.com/henri123lemoine/odoodash/internal/ui"
)

type options struct {
	configPath string
	server     string
	streamURL  string
	debug      bool
	debugLog   string
	noMouse    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:   "odoodash",
		Short: "Branch switching dashboard for Odoo clients",
		Long: `odoodash lists the Odoo clients managed by an automation server,
grouped by base client and environment, and switches their branches with
live progress. Drag a client onto a drop zone to create a staging or
development branch from it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default is "+config.ConfigPath()+")")
	root.Flags().StringVarP(&opts.server, "server", "s", "", "automation server URL (overrides server.url)")
	root.Flags().StringVar(&opts.streamURL, "stream-url", "", "WebSocket base URL (overrides server.stream_url)")
	root.Flags().BoolVar(&opts.debug, "debug", false, "write a debug log")
	root.Flags().StringVar(&opts.debugLog, "debug-log", "", "debug log path (default is "+debug.DefaultPath()+")")
	root.Flags().BoolVar(&opts.noMouse, "no-mouse", false, "disable mouse support")

	root.AddCommand(newInitConfigCmd(&opts))
	return root
}

func newInitConfigCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a commented default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.ConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if opts.debug || opts.debugLog != "" {
		path := opts.debugLog
		if path == "" {
			path = debug.DefaultPath()
		}
		if err := debug.Enable(path); err != nil {
			return fmt.Errorf("enabling debug log: %w", err)
		}
		defer debug.Close()
		debug.Log("odoodash starting, server %s", cfg.Server.URL)
	}

	for _, w := range cfg.Validate() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
	}

	ui.ApplyTheme(cfg.UI.Theme)

	model := app.New(cfg, mcp.New(cfg.Server), mcp.NewDialer(cfg.Server))
	defer model.Close()

	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.Mouse {
		progOpts = append(progOpts, tea.WithMouseCellMotion())
	}

	if _, err := tea.NewProgram(model, progOpts...).Run(); err != nil {
		return err
	}
	return nil
}

// loadConfig reads the config file and applies flag overrides. A missing
// file at the default path means defaults; an explicit path must exist.
func loadConfig(opts options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.ConfigPath()
	} else if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s does not exist", path)
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}

	if opts.server != "" {
		cfg.Server.URL = opts.server
	}
	if opts.streamURL != "" {
		cfg.Server.StreamURL = opts.streamURL
	}
	if opts.noMouse {
		cfg.UI.Mouse = false
	}
	return cfg, nil
}
