package core

import "testing"

func TestLaneSnapshotCheckInvariantsAcceptsConsistentState(t *testing.T) {
	s := LaneSnapshot{
		Source: OutboundLaneState{LatestGenerated: 10, LatestConfirmed: 5},
		Target: InboundLaneState{LatestReceived: 7, LatestConfirmed: 3},
	}
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("expected no violation, got %v", err)
	}
}

func TestLaneSnapshotCheckInvariantsCatchesGeneratedBehindReceived(t *testing.T) {
	s := LaneSnapshot{
		Source: OutboundLaneState{LatestGenerated: 3},
		Target: InboundLaneState{LatestReceived: 7},
	}
	if err := s.CheckInvariants(); err == nil {
		t.Fatal("expected a violation when latest_generated < latest_received")
	}
}

func TestLaneSnapshotCheckInvariantsCatchesReceivedBehindSourceConfirmed(t *testing.T) {
	s := LaneSnapshot{
		Source: OutboundLaneState{LatestGenerated: 10, LatestConfirmed: 9},
		Target: InboundLaneState{LatestReceived: 5},
	}
	if err := s.CheckInvariants(); err == nil {
		t.Fatal("expected a violation when latest_received < source.latest_confirmed")
	}
}

func TestLaneSnapshotCheckInvariantsCatchesSourceConfirmedBehindTargetConfirmed(t *testing.T) {
	s := LaneSnapshot{
		Source: OutboundLaneState{LatestGenerated: 10, LatestConfirmed: 2},
		Target: InboundLaneState{LatestReceived: 8, LatestConfirmed: 5},
	}
	if err := s.CheckInvariants(); err == nil {
		t.Fatal("expected a violation when source.latest_confirmed < target.latest_confirmed")
	}
}

func TestMessageEnvelopeToProtoRoundTripsFields(t *testing.T) {
	m := MessageEnvelope{Nonce: 7, Payload: []byte{1, 2, 3}, Weight: 100, Size: 42}
	p := m.ToProto()
	if p.Nonce != 7 || p.Weight != 100 || p.Size != 42 || string(p.Payload) != string(m.Payload) {
		t.Fatalf("unexpected proto conversion: %+v", p)
	}
}

func TestMessagesProofTotals(t *testing.T) {
	p := MessagesProof{Messages: []MessageEnvelope{
		{Nonce: 1, Weight: 10, Size: 5},
		{Nonce: 2, Weight: 20, Size: 7},
	}}
	if p.TotalWeight() != 30 {
		t.Fatalf("expected total weight 30, got %d", p.TotalWeight())
	}
	if p.TotalSize() != 12 {
		t.Fatalf("expected total size 12, got %d", p.TotalSize())
	}
}
