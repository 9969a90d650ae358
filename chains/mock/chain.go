// Package mock provides an in-memory Chain Client Facade implementation
// used by every loop package's tests and by every CLI subcommand (cmd's
// buildChain constructs only mock chains), grounded on the teacher's chains/debug delegation pattern but
// self-contained rather than wrapping a live node.
package mock

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"sync"
	"time"

	"github.com/paritytech/parity-bridges-common/core"
)

// Chain is a fully in-memory implementation of every capability interface
// in core, driven entirely by its exported mutation methods (FinalizeHeader,
// SetOutboundLaneState, ...). It never talks to a network.
type Chain struct {
	id          core.ChainID
	name        string
	blockTime   time.Duration
	runtimeVers core.RuntimeVersion

	// trackedSource is the counterparty chain whose finality this mock, as
	// a target, is tracking. Real light-client pallets are namespaced by
	// source chain id on their own; a mock only ever bridges one at a time.
	trackedSource core.ChainID

	mu sync.Mutex

	best      core.Header
	finalized core.Header

	voterSet core.VoterSetID
	proofs   map[core.BlockNumber]core.FinalityProof
	votes    map[core.BlockNumber][]core.SignedVote

	// bestFinalizedAt tracks, per counterparty source chain, the highest
	// header number this chain's light client has accepted as finalized.
	// A mock chain only ever bridges one source at a time in tests, but
	// keying by ChainID keeps the shape honest.
	bestFinalizedAt map[core.ChainID]core.BlockNumber

	parachainHeads   map[core.ParachainID]core.ParachainHeadProof
	recordedHeads    map[core.ParachainID]core.Hash

	outboundLanes map[core.LaneID]core.OutboundLaneState
	inboundLanes  map[core.LaneID]core.InboundLaneState
	messages      map[core.LaneID][]core.MessageEnvelope

	accountNonces map[core.RelayerID]uint64

	newHeadsSubs      []chan core.Header
	finalizedSubs     []chan core.Header
	txWatchers        map[core.Hash][]chan core.TxStatusEvent
	txEvents          map[core.Hash][]core.TxStatusEvent
	dispatchOutcome   map[core.Hash]core.DispatchOutcome

	reportedEquivocations []core.EquivocationProof
}

// New constructs an empty mock chain identified by id.
func New(id core.ChainID, name string) *Chain {
	return &Chain{
		id:              id,
		name:            name,
		blockTime:       6 * time.Second,
		proofs:          make(map[core.BlockNumber]core.FinalityProof),
		votes:           make(map[core.BlockNumber][]core.SignedVote),
		bestFinalizedAt: make(map[core.ChainID]core.BlockNumber),
		parachainHeads:  make(map[core.ParachainID]core.ParachainHeadProof),
		recordedHeads:   make(map[core.ParachainID]core.Hash),
		outboundLanes:   make(map[core.LaneID]core.OutboundLaneState),
		inboundLanes:    make(map[core.LaneID]core.InboundLaneState),
		messages:        make(map[core.LaneID][]core.MessageEnvelope),
		accountNonces:   make(map[core.RelayerID]uint64),
		txWatchers:      make(map[core.Hash][]chan core.TxStatusEvent),
		txEvents:        make(map[core.Hash][]core.TxStatusEvent),
		dispatchOutcome: make(map[core.Hash]core.DispatchOutcome),
		runtimeVers:     core.RuntimeVersion{SpecVersion: 1, TransactionVersion: 1},
	}
}

var (
	_ core.Chain                          = (*Chain)(nil)
	_ core.ChainWithFinality              = (*Chain)(nil)
	_ core.ChainWithParachains            = (*Chain)(nil)
	_ core.ChainWithMessages              = (*Chain)(nil)
	_ core.ChainWithSigning               = (*Chain)(nil)
	_ core.ChainWithRuntimeVersion        = (*Chain)(nil)
	_ core.ChainWithEquivocationDetection = (*Chain)(nil)
)

func (c *Chain) ChainID() core.ChainID           { return c.id }
func (c *Chain) Name() string                    { return c.name }
func (c *Chain) AverageBlockTime() time.Duration { return c.blockTime }

func (c *Chain) BestHeader(ctx context.Context) (core.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.best, nil
}

func (c *Chain) FinalizedHeader(ctx context.Context) (core.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized, nil
}

func (c *Chain) SubscribeNewHeads(ctx context.Context) (<-chan core.Header, error) {
	ch := make(chan core.Header, 16)
	c.mu.Lock()
	c.newHeadsSubs = append(c.newHeadsSubs, ch)
	c.mu.Unlock()
	go c.closeOnDone(ctx, ch)
	return ch, nil
}

func (c *Chain) SubscribeFinalized(ctx context.Context) (<-chan core.Header, error) {
	ch := make(chan core.Header, 16)
	c.mu.Lock()
	c.finalizedSubs = append(c.finalizedSubs, ch)
	c.mu.Unlock()
	go c.closeOnDone(ctx, ch)
	return ch, nil
}

func (c *Chain) closeOnDone(ctx context.Context, ch chan core.Header) {
	<-ctx.Done()
	c.mu.Lock()
	defer c.mu.Unlock()
	close(ch)
}

// WatchTransaction subscribes to tx's status events. The scheduler always
// calls Submit before Track/WatchTransaction, so a completed transaction's
// events are usually already buffered in txEvents by the time this is
// called; replay them immediately rather than requiring the watcher to have
// raced the submit.
func (c *Chain) WatchTransaction(ctx context.Context, tx core.TxHandle) (<-chan core.TxStatusEvent, error) {
	ch := make(chan core.TxStatusEvent, 16)
	c.mu.Lock()
	events, ok := c.txEvents[tx.Hash]
	if ok {
		delete(c.txEvents, tx.Hash)
	} else {
		c.txWatchers[tx.Hash] = append(c.txWatchers[tx.Hash], ch)
	}
	c.mu.Unlock()

	if ok {
		for _, e := range events {
			ch <- e
		}
		close(ch)
	}
	return ch, nil
}

func (c *Chain) RuntimeVersion(ctx context.Context) (core.RuntimeVersion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runtimeVers, nil
}

// -- ChainWithFinality --

func (c *Chain) CurrentVoterSet(ctx context.Context, at core.Hash) (core.VoterSetID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voterSet, nil
}

func (c *Chain) FinalityProof(ctx context.Context, number core.BlockNumber) (*core.FinalityProof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.proofs[number]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *Chain) SubmitFinalityProof(ctx context.Context, header core.Header, proof core.FinalityProof, signer core.Signer) (core.TxHandle, error) {
	tx := core.TxHandle{Chain: c.id, Hash: hashOf(header.Number, "finality")}
	c.mu.Lock()
	c.bestFinalizedAt[c.trackedSource] = proof.TargetNumber
	c.mu.Unlock()
	c.completeTx(tx)
	return tx, nil
}

// SetTrackedSource records which counterparty chain's finality this mock,
// acting as a target, is tracking. Must be called before SubmitFinalityProof
// if the test also queries BestFinalizedHeaderNumberAt with a non-zero
// ChainID.
func (c *Chain) SetTrackedSource(id core.ChainID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trackedSource = id
}

func (c *Chain) BestFinalizedHeaderNumberAt(ctx context.Context, sourceChain core.ChainID) (core.BlockNumber, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bestFinalizedAt[sourceChain], nil
}

// -- ChainWithParachains --

func (c *Chain) ParachainHead(ctx context.Context, at core.Hash, id core.ParachainID) (core.ParachainHeadProof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parachainHeads[id], nil
}

func (c *Chain) RecordedParachainHead(ctx context.Context, id core.ParachainID) (core.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordedHeads[id], nil
}

func (c *Chain) SubmitParachainHeads(ctx context.Context, relayHeader core.Hash, heads []core.ParachainHeadProof, signer core.Signer) (core.TxHandle, error) {
	tx := core.TxHandle{Chain: c.id, Hash: relayHeader}
	c.mu.Lock()
	for _, h := range heads {
		c.recordedHeads[h.ID] = h.Head
	}
	c.mu.Unlock()
	c.completeTx(tx)
	return tx, nil
}

// -- ChainWithMessages --

func (c *Chain) OutboundLaneState(ctx context.Context, at core.Hash, lane core.LaneID) (core.OutboundLaneState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outboundLanes[lane], nil
}

func (c *Chain) InboundLaneState(ctx context.Context, at core.Hash, lane core.LaneID) (core.InboundLaneState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inboundLanes[lane], nil
}

func (c *Chain) MessagesProof(ctx context.Context, at core.Hash, lane core.LaneID, from, to core.Nonce) (core.MessagesProof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []core.MessageEnvelope
	for _, m := range c.messages[lane] {
		if m.Nonce >= from && m.Nonce <= to {
			out = append(out, m)
		}
	}
	return core.MessagesProof{Lane: lane, FromNonce: from, ToNonce: to, Messages: out}, nil
}

func (c *Chain) MessagesDeliveryProof(ctx context.Context, at core.Hash, lane core.LaneID) (core.MessagesDeliveryProof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return core.MessagesDeliveryProof{Lane: lane, InboundState: c.inboundLanes[lane]}, nil
}

func (c *Chain) SubmitMessagesProof(ctx context.Context, relayer core.RelayerID, proof core.MessagesProof, signer core.Signer) (core.TxHandle, error) {
	tx := core.TxHandle{Chain: c.id, Hash: hashOf(core.BlockNumber(proof.ToNonce), "delivery")}
	c.mu.Lock()
	state := c.inboundLanes[proof.Lane]
	if proof.ToNonce > state.LatestReceived {
		state.LatestReceived = proof.ToNonce
	}
	if state.RelayersState == nil {
		state.RelayersState = make(map[core.Nonce]core.RelayerID)
	}
	for n := proof.FromNonce; n <= proof.ToNonce; n++ {
		state.RelayersState[n] = relayer
	}
	if proof.SourceLatestConfirmed > state.LatestConfirmed {
		state.LatestConfirmed = proof.SourceLatestConfirmed
	}
	for n := range state.RelayersState {
		if n <= state.LatestConfirmed {
			delete(state.RelayersState, n)
		}
	}
	c.inboundLanes[proof.Lane] = state
	c.mu.Unlock()
	c.completeTx(tx)
	return tx, nil
}

func (c *Chain) SubmitMessagesDeliveryProof(ctx context.Context, proof core.MessagesDeliveryProof, signer core.Signer) (core.TxHandle, error) {
	tx := core.TxHandle{Chain: c.id, Hash: hashOf(core.BlockNumber(proof.InboundState.LatestReceived), "confirmation")}
	c.mu.Lock()
	state := c.outboundLanes[proof.Lane]
	if proof.InboundState.LatestReceived > state.LatestConfirmed {
		state.LatestConfirmed = proof.InboundState.LatestReceived
	}
	c.outboundLanes[proof.Lane] = state
	c.mu.Unlock()
	c.completeTx(tx)
	return tx, nil
}

// -- ChainWithSigning / ChainWithEquivocationDetection --

func (c *Chain) AccountNonce(ctx context.Context, signer core.Signer) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountNonces[signer.AccountID()], nil
}

func (c *Chain) SubmitReportEquivocation(ctx context.Context, report core.EquivocationProof, signer core.Signer) (core.TxHandle, error) {
	tx := core.TxHandle{Chain: c.id, Hash: hashOf(core.BlockNumber(report.Round), "equivocation")}
	c.mu.Lock()
	c.reportedEquivocations = append(c.reportedEquivocations, report)
	c.mu.Unlock()
	c.completeTx(tx)
	return tx, nil
}

func (c *Chain) FinalityProofVotes(ctx context.Context, number core.BlockNumber) ([]core.SignedVote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.votes[number], nil
}

// completeTx immediately finalizes tx, since the mock chain has no real
// mempool or block production to simulate delay through. Submit always
// completes a tx before the scheduler's later Track call reaches
// WatchTransaction, so the events are delivered to whichever watcher is
// already registered, and otherwise buffered in txEvents for
// WatchTransaction to replay.
func (c *Chain) completeTx(tx core.TxHandle) {
	events := []core.TxStatusEvent{
		{Status: core.TxInBlock, BlockHash: tx.Hash},
		{Status: core.TxFinalized, BlockHash: tx.Hash},
	}

	c.mu.Lock()
	watchers := c.txWatchers[tx.Hash]
	delete(c.txWatchers, tx.Hash)
	if len(watchers) == 0 {
		c.txEvents[tx.Hash] = events
	}
	c.mu.Unlock()

	for _, w := range watchers {
		for _, e := range events {
			w <- e
		}
		close(w)
	}
}

func hashOf(n core.BlockNumber, salt string) core.Hash {
	var h core.Hash
	h[0] = byte(n)
	h[1] = byte(n >> 8)
	h[2] = byte(n >> 16)
	h[3] = byte(n >> 24)
	copy(h[4:], salt)
	return h
}

// NewSigner returns an ecdsa-backed core.Signer for tests, grounded on the
// teacher's local dev-key signer pattern.
func NewSigner() (core.Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &signer{key: key}, nil
}

type signer struct {
	key *ecdsa.PrivateKey
}

func (s *signer) Sign(digest []byte) ([]byte, error) {
	return ecdsa.SignASN1(rand.Reader, s.key, digest)
}

func (s *signer) GetPublicKey() (ecdsa.PublicKey, error) {
	return s.key.PublicKey, nil
}

func (s *signer) AccountID() core.RelayerID {
	var id core.RelayerID
	copy(id[:], s.key.PublicKey.X.Bytes())
	return id
}

// The methods below mutate the mock chain's state and fan out the resulting
// notifications, letting a test drive a scheduler exactly as a real node's
// subscriptions would.

// SetBest sets the chain's best (non-finalized) header and notifies every
// SubscribeNewHeads subscriber.
func (c *Chain) SetBest(h core.Header) {
	c.mu.Lock()
	c.best = h
	subs := append([]chan core.Header(nil), c.newHeadsSubs...)
	c.mu.Unlock()
	for _, ch := range subs {
		ch <- h
	}
}

// FinalizeHeader sets the chain's finalized header and notifies every
// SubscribeFinalized subscriber.
func (c *Chain) FinalizeHeader(h core.Header) {
	c.mu.Lock()
	c.finalized = h
	subs := append([]chan core.Header(nil), c.finalizedSubs...)
	c.mu.Unlock()
	for _, ch := range subs {
		ch <- h
	}
}

func (c *Chain) SetVoterSet(id core.VoterSetID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voterSet = id
}

func (c *Chain) AddFinalityProof(p core.FinalityProof) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proofs[p.TargetNumber] = p
}

func (c *Chain) AddVotes(number core.BlockNumber, votes ...core.SignedVote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.votes[number] = append(c.votes[number], votes...)
}

func (c *Chain) SetParachainHead(id core.ParachainID, head core.ParachainHeadProof) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parachainHeads[id] = head
}

func (c *Chain) SetRecordedParachainHead(id core.ParachainID, head core.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordedHeads[id] = head
}

func (c *Chain) SetOutboundLaneState(lane core.LaneID, state core.OutboundLaneState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outboundLanes[lane] = state
}

func (c *Chain) SetInboundLaneState(lane core.LaneID, state core.InboundLaneState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inboundLanes[lane] = state
}

func (c *Chain) AddMessages(lane core.LaneID, messages ...core.MessageEnvelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[lane] = append(c.messages[lane], messages...)
	state := c.outboundLanes[lane]
	for _, m := range messages {
		if m.Nonce > state.LatestGenerated {
			state.LatestGenerated = m.Nonce
		}
	}
	c.outboundLanes[lane] = state
}

func (c *Chain) SetAccountNonce(id core.RelayerID, n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountNonces[id] = n
}

func (c *Chain) SetRuntimeVersion(v core.RuntimeVersion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runtimeVers = v
}

// ReportedEquivocations returns every equivocation report this mock chain
// has received, for test assertions.
func (c *Chain) ReportedEquivocations() []core.EquivocationProof {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.EquivocationProof(nil), c.reportedEquivocations...)
}
