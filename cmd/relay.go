package cmd

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/paritytech/parity-bridges-common/config"
	"github.com/paritytech/parity-bridges-common/core"
	"github.com/paritytech/parity-bridges-common/log"
	"github.com/paritytech/parity-bridges-common/relay/finality"
	"github.com/paritytech/parity-bridges-common/relay/messages"
	"github.com/paritytech/parity-bridges-common/relay/parachains"
	"github.com/paritytech/parity-bridges-common/service"
)

// bridgeContext resolves the bridge named by a relay-* subcommand's
// positional args into its configured chains, source/target facades, and
// signer, the setup every relay-* subcommand shares.
type bridgeContext struct {
	cfg    *config.Config
	bridge config.BridgeConfig
	source *config.ChainConfig
	target *config.ChainConfig
	signer core.Signer
}

func resolveBridgeContext(args []string) (*bridgeContext, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	source, target := "", ""
	if len(args) == 2 {
		source, target = args[0], args[1]
	}
	bridge, err := selectBridge(cfg, source, target)
	if err != nil {
		return nil, err
	}
	sourceCfg, targetCfg, err := config.ResolveBridge(cfg, bridge)
	if err != nil {
		return nil, err
	}
	signer, err := config.LoadSigner(bridge.Signer)
	if err != nil {
		return nil, err
	}
	return &bridgeContext{cfg: cfg, bridge: bridge, source: &sourceCfg, target: &targetCfg, signer: signer}, nil
}

func relayHeadersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-headers <source> <target>",
		Short: "Run only the finality loop for one bridge direction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := resolveBridgeContext(args)
			if err != nil {
				return err
			}
			source, err := buildChain(*bc.source)
			if err != nil {
				return err
			}
			target, err := buildChain(*bc.target)
			if err != nil {
				return err
			}
			target.SetTrackedSource(source.ChainID())

			onlyMandatory, _ := cmd.Flags().GetBool(flagOnlyMandatory)

			scoped := log.GetLogger().WithChain(source.ChainID().String(), target.ChainID().String()).WithDirection("finality")
			logger := &scoped.Logger
			runners := []service.Runner{func(ctx context.Context) error {
				return finality.Run(ctx, finality.LoopConfig{
					Source:        source,
					Target:        target,
					Signer:        bc.signer,
					OnlyMandatory: onlyMandatory || bc.bridge.OnlyMandatory,
					Logger:        logger,
				})
			}}
			runners = appendGuardRunners(runners, *bc.source, *bc.target, source, target, logger)
			return runWithDrain(bc.cfg.Global.MetricsAddr, logger, runners...)
		},
	}
	cmd.Flags().Bool(flagOnlyMandatory, false, "only relay mandatory (voter-set-changing) finality proofs")
	return cmd
}

func relayParachainsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-parachains <source> <target>",
		Short: "Run only the parachain head loop for one bridge direction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := resolveBridgeContext(args)
			if err != nil {
				return err
			}
			relay, err := buildChain(*bc.source)
			if err != nil {
				return err
			}
			target, err := buildChain(*bc.target)
			if err != nil {
				return err
			}
			if len(bc.bridge.RelayParachains) == 0 {
				return core.NewFatalError(errors.New("bridge has no relay_parachains configured"))
			}
			ids := make([]core.ParachainID, len(bc.bridge.RelayParachains))
			for i, id := range bc.bridge.RelayParachains {
				ids[i] = core.ParachainID(id)
			}

			scoped := log.GetLogger().WithChain(relay.ChainID().String(), target.ChainID().String()).WithDirection("parachains")
			logger := &scoped.Logger
			runners := []service.Runner{func(ctx context.Context) error {
				return parachains.Run(ctx, parachains.LoopConfig{
					Relay:      relay,
					Target:     target,
					Signer:     bc.signer,
					Parachains: ids,
					Logger:     logger,
				})
			}}
			runners = appendGuardRunners(runners, *bc.source, *bc.target, relay, target, logger)
			return runWithDrain(bc.cfg.Global.MetricsAddr, logger, runners...)
		},
	}
	return cmd
}

func relayMessagesCmd() *cobra.Command {
	var laneFlag string
	cmd := &cobra.Command{
		Use:   "relay-messages <source> <target>",
		Short: "Run the message loop (delivery and confirmation races) for one lane",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := resolveBridgeContext(args)
			if err != nil {
				return err
			}
			laneCfg, err := selectLane(bc.bridge, laneFlag)
			if err != nil {
				return err
			}
			source, err := buildChain(*bc.source)
			if err != nil {
				return err
			}
			target, err := buildChain(*bc.target)
			if err != nil {
				return err
			}
			lane, err := config.ParseLaneID(laneCfg.ID)
			if err != nil {
				return err
			}

			scoped := log.GetLogger().WithChain(source.ChainID().String(), target.ChainID().String()).WithLane(lane.String())
			logger := &scoped.Logger
			runners := []service.Runner{func(ctx context.Context) error {
				return messages.Run(ctx, messages.LoopConfig{
					Source: source,
					Target: target,
					Lane:   lane,
					Signer: bc.signer,
					Caps:   deliveryCapsFromConfig(laneCfg),
					Logger: logger,
				})
			}}
			runners = appendGuardRunners(runners, *bc.source, *bc.target, source, target, logger)
			return runWithDrain(bc.cfg.Global.MetricsAddr, logger, runners...)
		},
	}
	cmd.Flags().StringVar(&laneFlag, "lane", "", "lane id to relay; required when the bridge configures more than one")
	return cmd
}

func relayHeadersAndMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-headers-and-messages <source> <target>",
		Short: "Run every configured loop for a bridge: finality, parachains (if any), and every lane",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := resolveBridgeContext(args)
			if err != nil {
				return err
			}
			source, err := buildChain(*bc.source)
			if err != nil {
				return err
			}
			target, err := buildChain(*bc.target)
			if err != nil {
				return err
			}
			target.SetTrackedSource(source.ChainID())

			onlyMandatory, _ := cmd.Flags().GetBool(flagOnlyMandatory)

			scoped := log.GetLogger().WithChain(source.ChainID().String(), target.ChainID().String())
			logger := &scoped.Logger
			var runners []service.Runner

			if bc.bridge.RelayHeaders {
				runners = append(runners, func(ctx context.Context) error {
					return finality.Run(ctx, finality.LoopConfig{
						Source:        source,
						Target:        target,
						Signer:        bc.signer,
						OnlyMandatory: onlyMandatory || bc.bridge.OnlyMandatory,
						Logger:        logger,
					})
				})
			}
			if len(bc.bridge.RelayParachains) > 0 {
				ids := make([]core.ParachainID, len(bc.bridge.RelayParachains))
				for i, id := range bc.bridge.RelayParachains {
					ids[i] = core.ParachainID(id)
				}
				runners = append(runners, func(ctx context.Context) error {
					return parachains.Run(ctx, parachains.LoopConfig{
						Relay:      source,
						Target:     target,
						Signer:     bc.signer,
						Parachains: ids,
						Logger:     logger,
					})
				})
			}
			for _, laneCfg := range bc.bridge.Lanes {
				laneCfg := laneCfg
				lane, err := config.ParseLaneID(laneCfg.ID)
				if err != nil {
					return err
				}
				runners = append(runners, func(ctx context.Context) error {
					return messages.Run(ctx, messages.LoopConfig{
						Source: source,
						Target: target,
						Lane:   lane,
						Signer: bc.signer,
						Caps:   deliveryCapsFromConfig(laneCfg),
						Logger: logger,
					})
				})
			}
			if len(runners) == 0 {
				return core.NewFatalError(errors.New("bridge configures no loops: enable relay_headers, relay_parachains, or at least one lane"))
			}
			runners = appendGuardRunners(runners, *bc.source, *bc.target, source, target, logger)

			return runWithDrain(bc.cfg.Global.MetricsAddr, logger, runners...)
		},
	}
	cmd.Flags().Bool(flagOnlyMandatory, false, "only relay mandatory (voter-set-changing) finality proofs")
	return cmd
}

func selectLane(bridge config.BridgeConfig, id string) (config.LaneConfig, error) {
	if id == "" {
		if len(bridge.Lanes) == 1 {
			return bridge.Lanes[0], nil
		}
		return config.LaneConfig{}, errors.New("multiple lanes configured: pass --lane to select one")
	}
	for _, l := range bridge.Lanes {
		if l.ID == id {
			return l, nil
		}
	}
	return config.LaneConfig{}, errors.Newf("no lane %q configured on this bridge", id)
}

func deliveryCapsFromConfig(cfg config.LaneConfig) messages.DeliveryCaps {
	return messages.DeliveryCaps{
		MaxMessagesPerTx:     core.Nonce(cfg.MaxMessagesPerTx),
		MaxUnconfirmed:       core.Nonce(cfg.MaxUnconfirmed),
		MaxExtrinsicSize:     cfg.MaxExtrinsicSize,
		MaxBlockWeight:       cfg.MaxBlockWeight,
		WeightBudgetFraction: cfg.WeightBudgetFraction,
	}
}
