package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/paritytech/parity-bridges-common/config"
	"github.com/paritytech/parity-bridges-common/log"
	"github.com/paritytech/parity-bridges-common/relay/equivocation"
)

func detectEquivocationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect-equivocations <chain>",
		Short: "Watch a chain's own finality justifications and report each GRANDPA equivocation found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			chainCfg, err := cfg.Chain(args[0])
			if err != nil {
				return err
			}
			chain, err := buildChain(chainCfg)
			if err != nil {
				return err
			}

			var signerCfg config.SignerConfig
			for _, b := range cfg.Bridges {
				if b.Source == args[0] || b.Target == args[0] {
					signerCfg = b.Signer
					break
				}
			}
			signer, err := config.LoadSigner(signerCfg)
			if err != nil {
				return err
			}

			scoped := log.GetLogger().WithModule("equivocation")
			logger := &scoped.Logger
			detector := &equivocation.Detector{
				Chain:  chain,
				Signer: signer,
				Logger: logger,
			}
			return runWithDrain(cfg.Global.MetricsAddr, logger, func(ctx context.Context) error {
				return detector.Run(ctx)
			})
		},
	}
	return cmd
}
