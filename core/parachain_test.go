package core

import "testing"

func TestNeedsSubmissionWhenHeadsDiffer(t *testing.T) {
	if !NeedsSubmission(Hash{1}, Hash{2}) {
		t.Fatal("expected submission to be needed when heads differ")
	}
}

func TestNeedsSubmissionWhenHeadsMatch(t *testing.T) {
	if NeedsSubmission(Hash{1}, Hash{1}) {
		t.Fatal("expected no submission needed when heads already match")
	}
}
