package core

// OpaqueProof is an already-encoded proof blob. The relay never decodes
// it — encoding is chain-specific and lives on the far side of the Chain
// Client Facade (§1, §6).
type OpaqueProof []byte

// FinalityProof is a blob proving that a source header at TargetNumber was
// finalized under VoterSet. Mandatory proofs enact a voter-set change and
// must be delivered; non-mandatory proofs may be coalesced away.
type FinalityProof struct {
	TargetNumber BlockNumber
	TargetHash   Hash
	VoterSet     VoterSetID
	// NextVoterSet is set only when this proof is Mandatory, and names the
	// voter set that becomes active immediately after TargetNumber.
	NextVoterSet VoterSetID
	Mandatory    bool
	Proof        OpaqueProof
	// Votes lists the individual signed precommits the justification
	// aggregates. No chain implementation here populates it; the
	// equivocation detector reads votes through FinalityProofVotes instead.
	Votes []SignedVote
}

// SelectFinalityProofsToSubmit implements §4.2's decision and coalescing
// rule over a batch of candidate proofs observed since the last submission,
// given the target's current best-known source height.
//
// Mandatory proofs are never dropped. Between two mandatory-free stretches
// of proofs, only the highest-numbered one is kept, since a non-mandatory
// proof for N+k also attests everything up to and including N+k.
func SelectFinalityProofsToSubmit(candidates []FinalityProof, bestAtTarget BlockNumber) []FinalityProof {
	var selected []FinalityProof
	var pendingNonMandatory *FinalityProof

	flushPending := func() {
		if pendingNonMandatory != nil {
			selected = append(selected, *pendingNonMandatory)
			pendingNonMandatory = nil
		}
	}

	for i := range candidates {
		p := candidates[i]
		if p.TargetNumber <= bestAtTarget && !p.Mandatory {
			// Already covered by the target and not mandatory: nothing to do.
			continue
		}
		if p.Mandatory {
			// A mandatory proof for a later header also attests everything
			// up to it, so it supersedes rather than follows any pending
			// non-mandatory candidate below it. Discard the candidate
			// instead of flushing it: submitting it separately would be
			// redundant and would reorder it ahead of the mandatory proof.
			pendingNonMandatory = nil
			selected = append(selected, p)
			continue
		}
		// Non-mandatory: keep coalescing to the highest one seen so far.
		if pendingNonMandatory == nil || p.TargetNumber > pendingNonMandatory.TargetNumber {
			pendingNonMandatory = &p
		}
	}
	flushPending()
	return selected
}

// TieBreakFinalityProof implements §4.2's tie-break rule: among several
// candidate proofs for the same decision point, prefer the one with the
// highest target number, and within that, the one enacting the nearest
// pending voter-set change.
func TieBreakFinalityProof(candidates []FinalityProof) (FinalityProof, bool) {
	if len(candidates) == 0 {
		return FinalityProof{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.TargetNumber > best.TargetNumber {
			best = c
			continue
		}
		if c.TargetNumber == best.TargetNumber && c.Mandatory && !best.Mandatory {
			best = c
		}
	}
	return best, true
}
