package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/swapdesk/internal/keys"
	"github.com/nhle/swapdesk/internal/model"
	configview "github.com/nhle/swapdesk/internal/ui/config"
)

// configCmd edits the connection settings interactively.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit connection settings",
	Long: `Opens a form to edit the backend URL, timeouts, polling and theme. The
connection is checked before saving.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	save := func(cfg *model.AppConfig) error {
		return model.SaveConfig(path, cfg)
	}

	m := configview.New(*env.cfg, nil, save, keys.DefaultKeyMap(), 80, 24)
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return fmt.Errorf("running settings form: %w", err)
	}

	if fm, ok := final.(configview.Model); ok && fm.Saved() {
		fmt.Fprintf(cmd.OutOrStdout(), "Settings saved to %s.\n", path)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	c := env.cfg
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config file:    %s\n", configPath)
	fmt.Fprintf(out, "api.base_url:   %s\n", c.API.BaseURL)
	fmt.Fprintf(out, "api.timeout:    %ds\n", c.API.TimeoutSec)
	fmt.Fprintf(out, "poll.interval:  %ds\n", c.Poll.IntervalSec)
	fmt.Fprintf(out, "poll.page_size: %d\n", c.Poll.PageSize)
	fmt.Fprintf(out, "storage.db:     %s\n", c.Storage.DBPath)
	fmt.Fprintf(out, "log.file:       %s\n", c.Log.File)
	fmt.Fprintf(out, "log.level:      %s\n", c.Log.Level)
	fmt.Fprintf(out, "display.theme:  %s\n", c.Display.Theme)
	return nil
}
