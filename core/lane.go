package core

import "github.com/cosmos/gogoproto/proto"

// RelayerID identifies the account credited for a message delivery.
type RelayerID [32]byte

// OutboundLaneState is the source-side snapshot of a lane's counters
// (§3's data model table).
type OutboundLaneState struct {
	// LatestGenerated is the highest nonce ever emitted on this lane.
	LatestGenerated Nonce
	// LatestConfirmed is the highest nonce whose delivery has been
	// confirmed back to the source (sender-side reward due).
	LatestConfirmed Nonce
	// RewardsPending maps a relayer to the reward still owed on source.
	RewardsPending map[RelayerID]RewardAmount
}

// InboundLaneState is the target-side snapshot of a lane's counters.
type InboundLaneState struct {
	// LatestReceived is the highest nonce accepted by the target.
	LatestReceived Nonce
	// LatestConfirmed is the highest nonce whose reward-payout has been
	// propagated back from the source, allowing the target to prune its
	// per-relayer bookkeeping.
	LatestConfirmed Nonce
	// RelayersState records, for each pending nonce in
	// (LatestConfirmed, LatestReceived], the relayer credited with its
	// delivery — the "last_delivered_nonce_holder" bookkeeping of §3.
	RelayersState map[Nonce]RelayerID
}

// LaneSnapshot is the immutable per-tick view of a lane's state on both
// sides, per §9's design note ("model lane state as a small immutable
// snapshot record"). Every scheduler tick produces a fresh snapshot and
// discards the old one; nothing here is shared mutable state.
type LaneSnapshot struct {
	Lane      LaneID
	Source    OutboundLaneState
	Target    InboundLaneState
	ObservedAtSource Hash
	ObservedAtTarget Hash
}

// CheckInvariants verifies §3/§8's quantified invariant:
//
//	source.latest_generated >= target.latest_received
//	  >= source.latest_confirmed >= target.latest_confirmed
func (s LaneSnapshot) CheckInvariants() error {
	if s.Source.LatestGenerated < s.Target.LatestReceived {
		return errInvariant("latest_generated < latest_received")
	}
	if s.Target.LatestReceived < s.Source.LatestConfirmed {
		return errInvariant("latest_received < source.latest_confirmed")
	}
	if s.Source.LatestConfirmed < s.Target.LatestConfirmed {
		return errInvariant("source.latest_confirmed < target.latest_confirmed")
	}
	return nil
}

func errInvariant(msg string) error {
	return &InvalidError{Reason: "lane invariant violated: " + msg}
}

// MessageEnvelope is an opaque message payload plus its declared dispatch
// weight and size; the relay never decodes Payload. It is a plain struct;
// ToProto converts it to its gogoproto form, MessageEnvelopeProto.
type MessageEnvelope struct {
	Nonce   Nonce
	Payload []byte
	Weight  uint64 // declared dispatch weight, opaque units
	Size    uint64 // encoded size in bytes
}

var _ proto.Message = (*MessageEnvelopeProto)(nil)

// MessageEnvelopeProto is the gogoproto-registered wire shape of
// MessageEnvelope, for hashing or comparing envelopes structurally. The
// delivery path does not use it.
type MessageEnvelopeProto struct {
	Nonce   uint64
	Payload []byte
	Weight  uint64
	Size    uint64
}

func (m *MessageEnvelopeProto) Reset()         { *m = MessageEnvelopeProto{} }
func (m *MessageEnvelopeProto) String() string { return proto.CompactTextString(m) }
func (*MessageEnvelopeProto) ProtoMessage()    {}

// ToProto converts a MessageEnvelope to its gogoproto wire shape.
func (m MessageEnvelope) ToProto() *MessageEnvelopeProto {
	return &MessageEnvelopeProto{
		Nonce:   uint64(m.Nonce),
		Payload: append([]byte(nil), m.Payload...),
		Weight:  m.Weight,
		Size:    m.Size,
	}
}

// MessagesProof carries a storage proof of messages [FromNonce, ToNonce] on
// Lane, plus the envelopes' declared weights/sizes needed for batch cap
// accounting. SourceLatestConfirmed is the source outbound lane's
// lanes_state as of the read that produced this proof: receive_messages_proof
// carries it alongside the message proof (§6) so the target can advance its
// own latest_confirmed and prune RelayersState without a separate call.
type MessagesProof struct {
	Lane                  LaneID
	FromNonce             Nonce
	ToNonce               Nonce
	Messages              []MessageEnvelope
	Proof                 OpaqueProof
	SourceLatestConfirmed Nonce
}

// TotalWeight sums the declared dispatch weight of every message in the
// proof.
func (p MessagesProof) TotalWeight() uint64 {
	var total uint64
	for _, m := range p.Messages {
		total += m.Weight
	}
	return total
}

// TotalSize sums the declared size of every message in the proof.
func (p MessagesProof) TotalSize() uint64 {
	var total uint64
	for _, m := range p.Messages {
		total += m.Size
	}
	return total
}

// MessagesDeliveryProof carries a storage proof of a lane's inbound state,
// to be relayed back to the source as a delivery confirmation, along with
// the relayers vector prefix source should be able to prune.
type MessagesDeliveryProof struct {
	Lane            LaneID
	InboundState    InboundLaneState
	Proof           OpaqueProof
}
