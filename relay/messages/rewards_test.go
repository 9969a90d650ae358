package messages

import (
	"testing"

	"github.com/paritytech/parity-bridges-common/core"
)

func TestUnconfirmedCount(t *testing.T) {
	in := core.InboundLaneState{LatestReceived: 10, LatestConfirmed: 4}
	if got := UnconfirmedCount(in); got != 6 {
		t.Fatalf("expected 6 unconfirmed, got %d", got)
	}
}

func TestTotalPendingReward(t *testing.T) {
	relayer := core.RelayerID{1}
	other := core.RelayerID{2}
	out := core.OutboundLaneState{RewardsPending: map[core.RelayerID]core.RewardAmount{
		relayer: core.NewRewardAmount(5),
		other:   core.NewRewardAmount(7),
	}}
	total := TotalPendingReward(out)
	if total.String() != "12" {
		t.Fatalf("expected total reward 12, got %s", total.String())
	}
	if got := RewardOwedTo(out, relayer); got.String() != "5" {
		t.Fatalf("expected relayer reward 5, got %s", got.String())
	}
}
