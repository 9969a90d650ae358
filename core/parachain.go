package core

// ParachainID identifies a parachain within a relay chain's registry.
type ParachainID uint32

// ParachainHeadProof carries the latest head of a parachain, read from
// storage key `paras(P)` at a finalized relay-chain header, together with
// the storage proof and the anchor's hash.
type ParachainHeadProof struct {
	ID          ParachainID
	Head        Hash
	AnchorHash  Hash
	AnchorLevel BlockNumber
	Proof       OpaqueProof
}

// NeedsSubmission implements §4.3's idempotence-aware decision: submit a
// new parachain-heads transaction only if the source's view of the head at
// the anchor differs from the target's currently recorded head.
func NeedsSubmission(sourceHead, targetHead Hash) bool {
	return sourceHead != targetHead
}
