package core

import "cosmossdk.io/math"

// RewardAmount is an arbitrary-precision reward balance, matching how a
// real bridge reward pallet denominates balances (u128 on-chain) rather
// than risking silent overflow with a native Go integer.
type RewardAmount struct {
	amount math.Int
}

// ZeroReward returns the zero reward amount.
func ZeroReward() RewardAmount {
	return RewardAmount{amount: math.ZeroInt()}
}

// NewRewardAmount constructs a RewardAmount from a non-negative int64.
func NewRewardAmount(v int64) RewardAmount {
	return RewardAmount{amount: math.NewInt(v)}
}

// Add returns the sum of two reward amounts.
func (r RewardAmount) Add(other RewardAmount) RewardAmount {
	return RewardAmount{amount: r.amount.Add(other.amount)}
}

// Sub returns r - other, floored at zero (a relayer's pending reward can
// never go negative; a subtraction that would underflow indicates the
// caller mis-tracked confirmations, which we treat as "nothing left").
func (r RewardAmount) Sub(other RewardAmount) RewardAmount {
	if r.amount.LT(other.amount) {
		return ZeroReward()
	}
	return RewardAmount{amount: r.amount.Sub(other.amount)}
}

// IsZero reports whether the reward amount is exactly zero.
func (r RewardAmount) IsZero() bool {
	return r.amount.IsNil() || r.amount.IsZero()
}

// LT reports whether r is strictly less than other.
func (r RewardAmount) LT(other RewardAmount) bool {
	return r.amount.LT(other.amount)
}

// String renders the reward amount in base-10.
func (r RewardAmount) String() string {
	if r.amount.IsNil() {
		return "0"
	}
	return r.amount.String()
}
