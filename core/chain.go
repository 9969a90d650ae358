// Package core implements the relay orchestration engine shared by every
// loop: the chain capability facade, the race scheduler, the transaction
// tracker and the runtime-version guard.
package core

import (
	"context"
	"time"
)

// ChainID is the 4-byte identifier of a chain, as it appears on the wire in
// bridge pallet storage keys (e.g. `b"pdot"`, `b"kusd"`).
type ChainID [4]byte

func (id ChainID) String() string {
	return string(id[:])
}

// Hash is a 32-byte chain-agnostic hash, matching Substrate's default
// BlakeTwo256 output width.
type Hash [32]byte

// BlockNumber is the unsigned 32-bit block height type used by every
// Substrate-style chain in scope.
type BlockNumber uint32

// DigestItem is an opaque header digest log entry: the relay never
// interprets the payload except when scanning for a consensus-engine
// identifier while looking for voter-set change signals.
type DigestItem struct {
	Kind    [4]byte
	Payload []byte
}

// Header is the minimal header shape every chain in scope produces. Hash is
// the header's own hash as computed by the source chain's node; the relay
// never recomputes it, since the encoding is chain-specific and lives on the
// far side of the Chain Client Facade.
type Header struct {
	Hash           Hash
	ParentHash     Hash
	Number         BlockNumber
	StateRoot      Hash
	ExtrinsicsRoot Hash
	Digest         []DigestItem
}

// Chain is the base capability every chain the relay talks to must
// implement. It is intentionally minimal: everything beyond identity and
// coarse liveness queries lives in a narrower capability interface so that
// a loop only depends on what it actually needs.
type Chain interface {
	// ChainID returns the 4-byte identifier of this chain.
	ChainID() ChainID

	// Name is a human-readable name used in logs and metrics labels.
	Name() string

	// BestHeader returns the best (not necessarily finalized) header known
	// to this chain's node.
	BestHeader(ctx context.Context) (Header, error)

	// FinalizedHeader returns the most recently finalized header known to
	// this chain's node.
	FinalizedHeader(ctx context.Context) (Header, error)

	// AverageBlockTime is used as a default polling interval (the
	// runtime-version guard's); no liveness deadline is derived from it.
	AverageBlockTime() time.Duration

	// SubscribeNewHeads returns a channel of new best-header notifications.
	// The channel is closed when ctx is cancelled.
	SubscribeNewHeads(ctx context.Context) (<-chan Header, error)

	// SubscribeFinalized returns a channel of newly finalized header
	// notifications. The channel is closed when ctx is cancelled.
	SubscribeFinalized(ctx context.Context) (<-chan Header, error)

	// WatchTransaction subscribes to the lifecycle of a previously submitted
	// transaction, as every loop's Action.Track needs regardless of which
	// capability interface produced the submission. The channel is closed
	// when ctx is cancelled or the node subscription ends.
	WatchTransaction(ctx context.Context, tx TxHandle) (<-chan TxStatusEvent, error)
}

// VoterSetID identifies a GRANDPA-style voter set/authority set.
type VoterSetID uint64

// ChainWithFinality is implemented by chains that produce finality proofs
// consumable by a counterparty's light client pallet.
type ChainWithFinality interface {
	Chain

	// CurrentVoterSet returns the voter set active at the given header.
	CurrentVoterSet(ctx context.Context, at Hash) (VoterSetID, error)

	// FinalityProof returns the finality proof for the header at the given
	// number, if the source has one buffered. A nil proof with a nil error
	// means "not available yet" (the caller should retry).
	FinalityProof(ctx context.Context, number BlockNumber) (*FinalityProof, error)

	// SubmitFinalityProof builds and submits a `submit_finality_proof`
	// extrinsic to this chain (acting as target) and returns its tracked
	// transaction handle.
	SubmitFinalityProof(ctx context.Context, header Header, proof FinalityProof, signer Signer) (TxHandle, error)

	// BestFinalizedHeaderNumberAt returns the highest source header number
	// this chain (acting as target) has accepted as finalized.
	BestFinalizedHeaderNumberAt(ctx context.Context, sourceChain ChainID) (BlockNumber, error)
}

// ChainWithEquivocationDetection is implemented by chains whose finality
// justifications expose the individual signed votes needed to catch a voter
// double-signing across conflicting justifications, and that can submit a
// resulting report_equivocation extrinsic to themselves.
type ChainWithEquivocationDetection interface {
	ChainWithFinality
	ChainWithSigning

	// FinalityProofVotes returns the signed votes the justification
	// finalizing the header at number aggregates.
	FinalityProofVotes(ctx context.Context, number BlockNumber) ([]SignedVote, error)
}

// ChainWithParachains is implemented by relay chains (source side of a
// parachain loop) and by chains that host a parachain-head light client
// (target side).
type ChainWithParachains interface {
	Chain

	// ParachainHead reads the head of parachain id, anchored at the given
	// finalized relay-chain header, together with its storage proof.
	ParachainHead(ctx context.Context, at Hash, id ParachainID) (ParachainHeadProof, error)

	// RecordedParachainHead returns the head of parachain id as currently
	// recorded on this chain (acting as target).
	RecordedParachainHead(ctx context.Context, id ParachainID) (Hash, error)

	// SubmitParachainHeads builds and submits a `submit_parachain_heads`
	// extrinsic to this chain (acting as target).
	SubmitParachainHeads(ctx context.Context, relayHeader Hash, heads []ParachainHeadProof, signer Signer) (TxHandle, error)
}

// LaneID is the 4-byte identifier of a message lane.
type LaneID [4]byte

func (id LaneID) String() string {
	return string(id[:])
}

// Nonce is a per-lane monotonically increasing message index.
type Nonce uint64

// ChainWithMessages is implemented by chains that host message lanes,
// either as the outbound (source) or inbound (target) side.
type ChainWithMessages interface {
	Chain

	// OutboundLaneState returns the outbound counters for lane at the given
	// finalized height.
	OutboundLaneState(ctx context.Context, at Hash, lane LaneID) (OutboundLaneState, error)

	// InboundLaneState returns the inbound counters for lane at the given
	// finalized height.
	InboundLaneState(ctx context.Context, at Hash, lane LaneID) (InboundLaneState, error)

	// MessagesProof reads a storage proof covering the messages in
	// [from, to] on the given lane, together with their declared weight
	// and size.
	MessagesProof(ctx context.Context, at Hash, lane LaneID, from, to Nonce) (MessagesProof, error)

	// MessagesDeliveryProof reads a storage proof of this chain's inbound
	// lane state (acting as target), to be relayed back to the source as
	// a delivery confirmation.
	MessagesDeliveryProof(ctx context.Context, at Hash, lane LaneID) (MessagesDeliveryProof, error)

	// SubmitMessagesProof submits `receive_messages_proof` to this chain
	// (acting as target).
	SubmitMessagesProof(ctx context.Context, relayer RelayerID, proof MessagesProof, signer Signer) (TxHandle, error)

	// SubmitMessagesDeliveryProof submits `receive_messages_delivery_proof`
	// to this chain (acting as source).
	SubmitMessagesDeliveryProof(ctx context.Context, proof MessagesDeliveryProof, signer Signer) (TxHandle, error)
}

// ChainWithSigning is implemented by chains capable of tracking a signer's
// nonce and submitting arbitrary extrinsics on its behalf (used by the
// equivocation detector to submit `report_equivocation`).
type ChainWithSigning interface {
	Chain

	// AccountNonce returns the current on-chain nonce of the signer's
	// account. No loop or tracker calls it, so nonce-too-low conflicts are
	// not detected through it.
	AccountNonce(ctx context.Context, signer Signer) (uint64, error)

	// SubmitReportEquivocation submits a `report_equivocation` extrinsic.
	SubmitReportEquivocation(ctx context.Context, report EquivocationProof, signer Signer) (TxHandle, error)
}

// ChainWithRuntimeVersion is implemented by every chain capable of
// reporting its on-chain runtime version, for the runtime-version guard.
type ChainWithRuntimeVersion interface {
	Chain

	// RuntimeVersion returns the (spec_version, transaction_version) pair
	// currently active on this chain.
	RuntimeVersion(ctx context.Context) (RuntimeVersion, error)
}

// RuntimeVersion is the pair of version numbers the runtime-version guard
// compares against the binary's bundled expectation.
type RuntimeVersion struct {
	SpecVersion        uint32
	TransactionVersion uint32
}
