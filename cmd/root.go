// Package cmd implements the bridge-relay CLI surface of §6: cobra
// subcommands bound onto a shared viper instance, matching the teacher's
// cmd/root.go and cmd/service.go shape.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paritytech/parity-bridges-common/log"
)

const flagConfig = "config"

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "bridge-relay",
	Short: "Relays finality, parachain heads, and messages between two Substrate-style chains",
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().String(flagConfig, "config.yaml", "path to the relay's YAML config file")
	if err := v.BindPFlag(flagConfig, rootCmd.PersistentFlags().Lookup(flagConfig)); err != nil {
		panic(err)
	}

	rootCmd.PersistentFlags().String(flagMetricsAddr, "", "override the config file's global.metrics_addr")
	if err := v.BindPFlag(flagMetricsAddr, rootCmd.PersistentFlags().Lookup(flagMetricsAddr)); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		initBridgeCmd(),
		relayHeadersCmd(),
		relayParachainsCmd(),
		relayMessagesCmd(),
		relayHeadersAndMessagesCmd(),
		detectEquivocationsCmd(),
	)
}

// Execute runs the root command; the process exit code is derived from
// whatever error the invoked subcommand returns, via core.ExitCode.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.GetLogger().ErrorWithStack("command failed", err)
		os.Exit(exitCodeOf(err))
	}
}
