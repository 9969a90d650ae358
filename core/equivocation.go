package core

// SignedVote is one GRANDPA-style prevote/precommit observed on a finality
// proof: a voter's signature over a target block within a round of a voter
// set.
type SignedVote struct {
	VoterSet     VoterSetID
	Round        uint64
	Voter        [32]byte // ed25519 public key
	TargetHash   Hash
	TargetNumber BlockNumber
	Signature    [64]byte
}

// key identifies the (voter set, round, voter) slot a vote occupies. Two
// SignedVotes with the same key but different TargetHash are an
// equivocation: the voter signed two different blocks in the same round.
type equivocationKey struct {
	VoterSet VoterSetID
	Round    uint64
	Voter    [32]byte
}

func (v SignedVote) key() equivocationKey {
	return equivocationKey{VoterSet: v.VoterSet, Round: v.Round, Voter: v.Voter}
}

// EquivocationProof pairs two conflicting signed votes from the same voter,
// in the wire shape `report_equivocation` expects.
type EquivocationProof struct {
	VoterSet VoterSetID
	Round    uint64
	Voter    [32]byte
	First    SignedVote
	Second   SignedVote
}

// FindEquivocation reports whether two votes from the same voter in the
// same round conflict, and if so returns the proof pairing them with the
// earlier-observed vote first.
func FindEquivocation(a, b SignedVote) (EquivocationProof, bool) {
	if a.key() != b.key() {
		return EquivocationProof{}, false
	}
	if a.TargetHash == b.TargetHash {
		return EquivocationProof{}, false
	}
	return EquivocationProof{
		VoterSet: a.VoterSet,
		Round:    a.Round,
		Voter:    a.Voter,
		First:    a,
		Second:   b,
	}, true
}
