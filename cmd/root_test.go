package cmd

import (
	"testing"

	"github.com/paritytech/parity-bridges-common/config"
)

var testConfig = config.Config{
	Bridges: []config.BridgeConfig{
		{Source: "polkadot", Target: "kusama"},
		{Source: "kusama", Target: "polkadot"},
	},
}

func TestRootCommandRegistersEverySubcommand(t *testing.T) {
	want := []string{
		"init-bridge",
		"relay-headers",
		"relay-parachains",
		"relay-messages",
		"relay-headers-and-messages",
		"detect-equivocations",
	}
	got := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("expected rootCmd to register a %q subcommand", name)
		}
	}
}

func TestSelectBridgeRequiresDisambiguationWithMultipleBridges(t *testing.T) {
	cfg := &testConfig
	if _, err := selectBridge(cfg, "", ""); err == nil {
		t.Fatal("expected an error when multiple bridges are configured and none is selected")
	}
	got, err := selectBridge(cfg, "polkadot", "kusama")
	if err != nil {
		t.Fatalf("selectBridge: %v", err)
	}
	if got.Source != "polkadot" || got.Target != "kusama" {
		t.Fatalf("unexpected bridge: %+v", got)
	}
}
