package cmd

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/paritytech/parity-bridges-common/core"
)

func initBridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-bridge <source> <target>",
		Short: "Submit the bootstrap finality proof and voter set that seeds a target chain's light client",
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

			ctx := context.Background()

			header, err := source.FinalizedHeader(ctx)
			if err != nil {
				return err
			}
			proof, err := source.FinalityProof(ctx, header.Number)
			if err != nil {
				return err
			}
			if proof == nil {
				return core.NewFatalError(errors.Newf(
					"source chain %s has no finality proof recorded for its current finalized header %d; "+
						"init-bridge needs a real justification to bootstrap from", source.ChainID(), header.Number))
			}

			tx, err := target.SubmitFinalityProof(ctx, header, *proof, bc.signer)
			if err != nil {
				return err
			}
			events, err := target.WatchTransaction(ctx, tx)
			if err != nil {
				return err
			}
			status := core.NewTransactionTracker(dispatchOkEnv{}, tx, time.Minute, events).Wait(ctx)
			cmd.Printf("bootstrap finality proof for %s@%d reached %s on %s\n",
				source.ChainID(), header.Number, status, target.ChainID())
			return nil
		},
	}
	return cmd
}

// dispatchOkEnv mirrors relay/finality's dispatchOutcomeEnv: a bootstrap
// submit_finality_proof either lands or is rejected at validation, so a
// transaction that reaches InBlock always dispatched successfully.
type dispatchOkEnv struct{}

func (dispatchOkEnv) ExtrinsicDispatchOutcome(ctx context.Context, blockHash, txHash core.Hash) (core.DispatchOutcome, error) {
	return core.DispatchOk, nil
}
