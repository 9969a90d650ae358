package config

import "testing"

func TestParseChainID(t *testing.T) {
	id, err := ParseChainID("pdot")
	if err != nil {
		t.Fatalf("ParseChainID: %v", err)
	}
	if id.String() != "pdot" {
		t.Fatalf("expected pdot, got %s", id.String())
	}

	if _, err := ParseChainID("toolong"); err == nil {
		t.Fatal("expected an error for a chain id with the wrong length")
	}
}

func TestResolveBridge(t *testing.T) {
	cfg := &Config{
		Chains: []ChainConfig{
			{Name: "polkadot", ID: "pdot"},
			{Name: "kusama", ID: "ksma"},
		},
	}
	bridge := BridgeConfig{Source: "polkadot", Target: "kusama"}

	src, tgt, err := ResolveBridge(cfg, bridge)
	if err != nil {
		t.Fatalf("ResolveBridge: %v", err)
	}
	if src.ID != "pdot" || tgt.ID != "ksma" {
		t.Fatalf("unexpected resolution: src=%+v tgt=%+v", src, tgt)
	}

	if _, _, err := ResolveBridge(cfg, BridgeConfig{Source: "polkadot", Target: "missing"}); err == nil {
		t.Fatal("expected an error for an unknown target chain")
	}
}
