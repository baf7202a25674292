// Package cli provides the command-line interface for agol-shelf.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agrc/agol-shelf/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	token     string
	tokenFile string // Path to file containing a portal token
	portalURL string
	username  string
	verbose   bool
	debug     bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information - set by main package at startup
var (
	Version   = "v1.2.0-dev"
	BuildTime = "2026-08-31"
)

// NewRootCmd creates the root command for CLI mode.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agol-shelf",
		Short: "agol-shelf - publish and audit SGID layers in ArcGIS Online",
		Long: `agol-shelf ` + Version + ` - Built: ` + BuildTime + `
Tool for shelving SGID datasets into ArcGIS Online and keeping the org's
hosted feature services tidy.

Publishing:
  Reads a control CSV of datasets, stages each one through the desktop-GIS
  worker, publishes it as a hosted feature service, and records the result
  in the run log and the stewardship spreadsheets.

Auditing:
  Walks the org's feature services, builds the tag index, and reports on
  duplicate tags, malformed tags, and per-item sharing and usage. The fix
  command rewrites bad tags in place.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger()
			if verbose || debug {
				logging.SetGlobalLevel(-1) // zerolog.DebugLevel
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Portal token (overrides all other sources)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "Path to file containing a portal token")
	rootCmd.PersistentFlags().StringVar(&portalURL, "portal-url", "", "Portal URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Portal user name (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				fmt.Fprintf(os.Stderr, "Items already published are not rolled back.\n\n")
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newPublishCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newFixCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
