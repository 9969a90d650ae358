package messages

import "github.com/paritytech/parity-bridges-common/core"

// TotalPendingReward sums the reward owed to every relayer recorded on an
// outbound lane snapshot. The relay never pays rewards itself — payout
// happens on chain when a confirmation lands — this exists purely for
// metrics and log lines (§4.4's reward-accounting requirement is
// observability, not custody).
func TotalPendingReward(out core.OutboundLaneState) core.RewardAmount {
	total := core.ZeroReward()
	for _, r := range out.RewardsPending {
		total = total.Add(r)
	}
	return total
}

// RewardOwedTo returns the reward an outbound lane snapshot records as owed
// to relayer, or zero if it has none pending.
func RewardOwedTo(out core.OutboundLaneState, relayer core.RelayerID) core.RewardAmount {
	return out.RewardsPending[relayer]
}

// UnconfirmedCount is the number of delivered-but-not-yet-reward-confirmed
// messages sitting on an inbound lane, counted against the inbound lane's
// own LatestConfirmed only.
func UnconfirmedCount(in core.InboundLaneState) core.Nonce {
	if in.LatestReceived < in.LatestConfirmed {
		return 0
	}
	return in.LatestReceived - in.LatestConfirmed
}
