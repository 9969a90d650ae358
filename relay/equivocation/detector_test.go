package equivocation

import (
	"context"
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/paritytech/parity-bridges-common/core"
)

type fakeEquivocationChain struct {
	id core.ChainID

	votesByBlock map[core.BlockNumber][]core.SignedVote

	reports []core.EquivocationProof
}

func (c *fakeEquivocationChain) ChainID() core.ChainID           { return c.id }
func (c *fakeEquivocationChain) Name() string                    { return c.id.String() }
func (c *fakeEquivocationChain) AverageBlockTime() time.Duration { return time.Millisecond }
func (c *fakeEquivocationChain) BestHeader(ctx context.Context) (core.Header, error) {
	return core.Header{}, nil
}
func (c *fakeEquivocationChain) FinalizedHeader(ctx context.Context) (core.Header, error) {
	return core.Header{}, nil
}
func (c *fakeEquivocationChain) SubscribeNewHeads(ctx context.Context) (<-chan core.Header, error) {
	return make(chan core.Header), nil
}
func (c *fakeEquivocationChain) SubscribeFinalized(ctx context.Context) (<-chan core.Header, error) {
	ch := make(chan core.Header, 2)
	ch <- core.Header{Number: 1}
	ch <- core.Header{Number: 2}
	close(ch)
	return ch, nil
}
func (c *fakeEquivocationChain) WatchTransaction(ctx context.Context, tx core.TxHandle) (<-chan core.TxStatusEvent, error) {
	ch := make(chan core.TxStatusEvent, 1)
	ch <- core.TxStatusEvent{Status: core.TxFinalized}
	close(ch)
	return ch, nil
}
func (c *fakeEquivocationChain) CurrentVoterSet(ctx context.Context, at core.Hash) (core.VoterSetID, error) {
	return 1, nil
}
func (c *fakeEquivocationChain) FinalityProof(ctx context.Context, number core.BlockNumber) (*core.FinalityProof, error) {
	return nil, nil
}
func (c *fakeEquivocationChain) SubmitFinalityProof(ctx context.Context, header core.Header, proof core.FinalityProof, signer core.Signer) (core.TxHandle, error) {
	return core.TxHandle{}, nil
}
func (c *fakeEquivocationChain) BestFinalizedHeaderNumberAt(ctx context.Context, sourceChain core.ChainID) (core.BlockNumber, error) {
	return 0, nil
}
func (c *fakeEquivocationChain) AccountNonce(ctx context.Context, signer core.Signer) (uint64, error) {
	return 0, nil
}
func (c *fakeEquivocationChain) SubmitReportEquivocation(ctx context.Context, report core.EquivocationProof, signer core.Signer) (core.TxHandle, error) {
	c.reports = append(c.reports, report)
	return core.TxHandle{Chain: c.id}, nil
}
func (c *fakeEquivocationChain) FinalityProofVotes(ctx context.Context, number core.BlockNumber) ([]core.SignedVote, error) {
	return c.votesByBlock[number], nil
}

var _ core.ChainWithEquivocationDetection = (*fakeEquivocationChain)(nil)

type fakeSigner struct{}

func (fakeSigner) Sign(digest []byte) ([]byte, error)     { return nil, nil }
func (fakeSigner) GetPublicKey() (ecdsa.PublicKey, error) { return ecdsa.PublicKey{}, nil }
func (fakeSigner) AccountID() core.RelayerID              { return core.RelayerID{} }

func TestDetectorReportsConflictingVotesAcrossBlocks(t *testing.T) {
	voter := [32]byte{7}
	chain := &fakeEquivocationChain{
		id: core.ChainID{'r', 'e', 'l', '0'},
		votesByBlock: map[core.BlockNumber][]core.SignedVote{
			1: {{VoterSet: 1, Round: 5, Voter: voter, TargetHash: core.Hash{1}}},
			2: {{VoterSet: 1, Round: 5, Voter: voter, TargetHash: core.Hash{2}}},
		},
	}

	d := &Detector{Chain: chain, Signer: fakeSigner{}}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := d.Run(ctx)
	if err != nil && err != context.DeadlineExceeded {
		t.Fatalf("Run: %v", err)
	}
	if len(chain.reports) != 1 {
		t.Fatalf("expected exactly one equivocation report, got %d", len(chain.reports))
	}
	if chain.reports[0].Round != 5 {
		t.Fatalf("expected round 5, got %d", chain.reports[0].Round)
	}
}

func TestDetectorIgnoresRepeatedIdenticalVotes(t *testing.T) {
	voter := [32]byte{7}
	chain := &fakeEquivocationChain{
		id: core.ChainID{'r', 'e', 'l', '0'},
		votesByBlock: map[core.BlockNumber][]core.SignedVote{
			1: {{VoterSet: 1, Round: 5, Voter: voter, TargetHash: core.Hash{1}}},
			2: {{VoterSet: 1, Round: 5, Voter: voter, TargetHash: core.Hash{1}}},
		},
	}

	d := &Detector{Chain: chain, Signer: fakeSigner{}}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_ = d.Run(ctx)
	if len(chain.reports) != 0 {
		t.Fatalf("expected no reports for identical repeated votes, got %d", len(chain.reports))
	}
}
