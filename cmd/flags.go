package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/paritytech/parity-bridges-common/config"
	"github.com/paritytech/parity-bridges-common/core"
	"github.com/paritytech/parity-bridges-common/log"
	"github.com/paritytech/parity-bridges-common/metrics"
	"github.com/paritytech/parity-bridges-common/service"
)

func exitCodeOf(err error) int {
	return core.ExitCode(err)
}

// loadConfig reads the config file bound to the persistent --config flag and
// initializes the process-wide logger from its Global section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, v.GetString(flagConfig))
	if err != nil {
		return nil, err
	}
	if err := log.InitLogger(cfg.Global.LogLevel, cfg.Global.LogFormat, cfg.Global.LogOutput); err != nil {
		return nil, err
	}
	if addr := v.GetString(flagMetricsAddr); addr != "" {
		cfg.Global.MetricsAddr = addr
	}
	return cfg, nil
}

const (
	flagOnlyMandatory = "only-mandatory-headers"
	flagMetricsAddr   = "metrics-addr"

	metricsShutdownTimeout = 5 * time.Second
)

// selectBridge resolves which configured bridge a subcommand should serve.
// With a single configured bridge, --source/--target may be omitted.
func selectBridge(cfg *config.Config, source, target string) (config.BridgeConfig, error) {
	if source == "" && target == "" {
		if len(cfg.Bridges) == 1 {
			return cfg.Bridges[0], nil
		}
		return config.BridgeConfig{}, errors.New("multiple bridges configured: pass --source and --target to select one")
	}
	for _, b := range cfg.Bridges {
		if b.Source == source && b.Target == target {
			return b, nil
		}
	}
	return config.BridgeConfig{}, errors.Newf("no bridge configured for %s -> %s", source, target)
}

// runWithDrain runs runners under a context cancelled by SIGINT/SIGTERM,
// via a service.Bridge so an in-flight submission gets the drain window of
// §5 rather than being cut off outright, and starts the Prometheus
// metrics endpoint alongside them when the config names one.
func runWithDrain(metricsAddr string, logger *slog.Logger, runners ...service.Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		if err := metrics.Initialize(metricsAddr); err != nil {
			return core.NewFatalError(err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := metrics.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shut down metrics server", "error", err)
			}
		}()
	}

	bridge := &service.Bridge{Runners: runners, Logger: logger}
	return bridge.Run(ctx)
}
