package config

// ChainConfig describes one chain a relay process can connect to.
type ChainConfig struct {
	// Name is the short handle bridges reference this chain by.
	Name string `yaml:"name"`
	// ID is the 4-byte on-wire chain identifier, e.g. "pdot".
	ID string `yaml:"id"`
	// Endpoint is the chain node's RPC/WebSocket address.
	Endpoint string `yaml:"endpoint"`
	// AverageBlockTimeMS overrides the chain's default block-time
	// assumption used to size polling intervals and liveness deadlines.
	AverageBlockTimeMS int `yaml:"average_block_time_ms"`
	// ExpectedSpecVersion and ExpectedTransactionVersion are the runtime
	// versions the binary was built and tested against, checked by the
	// runtime-version guard (§4.1).
	ExpectedSpecVersion        uint32 `yaml:"expected_spec_version"`
	ExpectedTransactionVersion uint32 `yaml:"expected_transaction_version"`
	// PermissiveSpecBump resolves Open Question (b): if true, a spec
	// version bump with an unchanged transaction version logs at INFO
	// instead of WARN.
	PermissiveSpecBump bool `yaml:"permissive_spec_bump"`
}

// BridgeConfig describes one direction of relaying between two configured
// chains.
type BridgeConfig struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`

	RelayHeaders    bool     `yaml:"relay_headers"`
	OnlyMandatory   bool     `yaml:"only_mandatory_headers"`
	RelayParachains []uint32 `yaml:"relay_parachains"`

	Lanes []LaneConfig `yaml:"lanes"`

	Signer SignerConfig `yaml:"signer"`
}
