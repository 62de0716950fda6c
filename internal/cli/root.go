// Package cli provides the command-line interface for ftpsheep: a
// deploy/profile/history/build command surface built on
// github.com/spf13/cobra, with persistent flags, a signal-cancellable
// root context, and logger initialization in PersistentPreRun.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ftpsheep/ftpsheep/internal/logging"
	"github.com/ftpsheep/ftpsheep/internal/pathutil"
)

var (
	cfgDir  string
	verbose bool
	debug   bool

	logger *logging.Logger

	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version is set by cmd/ftpsheep/main.go at startup.
var Version = "dev"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ftpsheep",
		Short:   "Build and deploy a managed-runtime web project over FTP/FTPS/SFTP",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultLogger()
			if verbose || debug {
				logging.SetGlobalLevel(-1)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgDir, "config-dir", "c", "", "Configuration directory (profiles, history, credential seed)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	return rootCmd
}

// Execute runs the CLI, cancelling the shared context on SIGINT/SIGTERM.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintln(os.Stderr, color.YellowString("\nReceived %v, cancelling deployment...", sig))
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.ExecuteContext(rootContext)

	signal.Stop(sigChan)
	close(sigChan)
	return err
}

// AddCommands registers every ftpsheep subcommand.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newBuildCmd())
}

// GetLogger returns the process-wide CLI logger, initializing it if
// Execute hasn't run yet (e.g. unit tests that call subcommands directly).
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return logger
}

// GetContext returns the signal-cancellable root context.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// resolveConfigDir returns the configuration root, defaulting to
// ~/.ftpsheep when --config-dir is unset.
func resolveConfigDir() (string, error) {
	if cfgDir != "" {
		return pathutil.ResolveAbsolutePath(cfgDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home + "/.ftpsheep", nil
}
