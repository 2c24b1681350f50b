package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/swapdesk/internal/model"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Root flags: a gateway callback reference to verify on launch.
	launchReference string
	launchOrderID   string

	// env is built by PersistentPreRunE and shared by every subcommand.
	env *appEnv
)

// rootCmd launches the inbox TUI.
var rootCmd = &cobra.Command{
	Use:   "swapdesk",
	Short: "Notifications, wallet and payments for the swap marketplace",
	Long: `swapdesk is a terminal client for the device swap marketplace.

Run without arguments to open your notification inbox. Pass --reference
(and --order for order payments) after paying at the gateway to verify the
payment as soon as the inbox opens.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if env != nil {
			return nil
		}
		cfg, err := model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		e, err := newAppEnv(cfg, verbose)
		if err != nil {
			return err
		}
		env = e
		return nil
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", model.DefaultConfigPath(), "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().StringVar(&launchReference, "reference", "", "Payment reference returned by the gateway")
	rootCmd.Flags().StringVar(&launchOrderID, "order", "", "Order id the reference pays for")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(forgotPasswordCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(ordersCmd)
}

// execute runs the command line and releases the environment whether or
// not the command succeeded.
func execute() error {
	defer closeEnv()

	err := rootCmd.Execute()
	if err != nil && env != nil {
		env.logger.Error("command failed", zap.Error(err))
	}
	return err
}

func closeEnv() {
	if env != nil {
		env.Close()
		env = nil
	}
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
