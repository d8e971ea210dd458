// Package cli provides the command-line interface for swatchpath.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/swatchpath/internal/version"
)

var (
	// Global flags
	globalVerbose bool
	globalQuiet   bool
	globalConfig  string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "swatchpath",
		Short: "Colour gradients built from real textures",
		Long: `swatchpath builds colour gradients in which every step is a real texture
from a palette: a directory or archive of images such as a game's block
textures.

Textures with near-identical colours are clustered into entries, a
direction-aware graph is built between two endpoints, and successive,
diverging cheapest paths through it become the rows of a gradient grid.`,
		Version:      version.Short(),
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globalQuiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&globalConfig, "config", "", "config file (default: $XDG_CONFIG_HOME/swatchpath/config.yaml)")

	// Set version template
	rootCmd.SetVersionTemplate(version.String() + "\n")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(gradientCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(browseCmd)
}

// newLogger builds the command logger from the global flags.
func newLogger(cmd *cobra.Command) hclog.Logger {
	level := hclog.Info
	switch {
	case globalQuiet:
		level = hclog.Error
	case globalVerbose:
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "swatchpath",
		Level:  level,
		Output: cmd.ErrOrStderr(),
	})
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including build date, commit hash, and Go version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
