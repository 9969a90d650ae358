package config

import (
	"github.com/cockroachdb/errors"

	"github.com/paritytech/parity-bridges-common/core"
)

// ParseChainID converts a 4-character chain identifier string (as written
// in config.yaml) into its wire form.
func ParseChainID(s string) (core.ChainID, error) {
	var id core.ChainID
	if len(s) != len(id) {
		return id, errors.Newf("chain id %q must be exactly %d characters", s, len(id))
	}
	copy(id[:], s)
	return id, nil
}

// ParseLaneID converts a 4-character lane identifier string into its wire
// form.
func ParseLaneID(s string) (core.LaneID, error) {
	var id core.LaneID
	if len(s) != len(id) {
		return id, errors.Newf("lane id %q must be exactly %d characters", s, len(id))
	}
	copy(id[:], s)
	return id, nil
}

// ResolveBridge validates that a BridgeConfig's Source and Target both name
// chains present in cfg.Chains and returns their resolved ChainConfig pair.
func ResolveBridge(cfg *Config, bridge BridgeConfig) (source, target ChainConfig, err error) {
	source, err = cfg.Chain(bridge.Source)
	if err != nil {
		return ChainConfig{}, ChainConfig{}, err
	}
	target, err = cfg.Chain(bridge.Target)
	if err != nil {
		return ChainConfig{}, ChainConfig{}, err
	}
	return source, target, nil
}
