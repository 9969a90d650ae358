package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/paritytech/parity-bridges-common/chains/mock"
	"github.com/paritytech/parity-bridges-common/config"
	"github.com/paritytech/parity-bridges-common/core"
	"github.com/paritytech/parity-bridges-common/service"
)

// buildChain constructs the Chain Client Facade for a configured chain.
// Only the in-memory mock implementation ships in this repo (see
// DESIGN.md); a production deployment would dial cfg.Endpoint through a
// real Substrate RPC client satisfying the same core interfaces, and this
// is the single seam such a client would need to plug into.
func buildChain(cfg config.ChainConfig) (*mock.Chain, error) {
	id, err := config.ParseChainID(cfg.ID)
	if err != nil {
		return nil, err
	}
	chain := mock.New(id, cfg.Name)
	if cfg.ExpectedSpecVersion != 0 {
		chain.SetRuntimeVersion(core.RuntimeVersion{
			SpecVersion:        cfg.ExpectedSpecVersion,
			TransactionVersion: cfg.ExpectedTransactionVersion,
		})
	}
	return chain, nil
}

// runtimeGuardRunner wraps a core.RuntimeVersionGuard for cfg's chain into
// a service.Runner, or returns nil if cfg names no expected runtime
// version to guard against. An Incompatible verdict aborts the returned
// runner with an *core.IncompatibleRuntimeError, which service.Bridge.Run
// propagates to bring down the whole bridge per §4.1.
func runtimeGuardRunner(cfg config.ChainConfig, chain core.ChainWithRuntimeVersion, logger *slog.Logger) service.Runner {
	if cfg.ExpectedSpecVersion == 0 {
		return nil
	}
	interval := time.Duration(cfg.AverageBlockTimeMS) * time.Millisecond
	if interval <= 0 {
		interval = chain.AverageBlockTime()
	}
	id, err := config.ParseChainID(cfg.ID)
	if err != nil {
		return nil
	}
	guard := core.NewRuntimeVersionGuard(id, core.RuntimeVersion{
		SpecVersion:        cfg.ExpectedSpecVersion,
		TransactionVersion: cfg.ExpectedTransactionVersion,
	}, interval, cfg.PermissiveSpecBump, logger)
	return func(ctx context.Context) error {
		return guard.Run(ctx, chain)
	}
}

// appendGuardRunners appends the source and target runtime-version guards
// to runners, skipping either chain that configures no expectation.
func appendGuardRunners(runners []service.Runner, sourceCfg, targetCfg config.ChainConfig, source, target core.ChainWithRuntimeVersion, logger *slog.Logger) []service.Runner {
	if r := runtimeGuardRunner(sourceCfg, source, logger); r != nil {
		runners = append(runners, r)
	}
	if r := runtimeGuardRunner(targetCfg, target, logger); r != nil {
		runners = append(runners, r)
	}
	return runners
}
