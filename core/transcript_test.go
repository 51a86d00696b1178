package orchestration

import "testing"

func TestTranscriptAccumulatorJoinsFragments(t *testing.T) {
	transcript := transcriptAccumulator{}
	transcript.append(" hello ")
	transcript.append("")
	transcript.append("   ")
	transcript.append("world")

	if transcript.empty() {
		t.Fatalf("expected pending fragments")
	}
	if turn := transcript.drain(); turn != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", turn)
	}
	if !transcript.empty() {
		t.Fatalf("expected drain to clear the buffer")
	}
	if turn := transcript.drain(); turn != "" {
		t.Fatalf("expected empty turn after drain, got %q", turn)
	}
}
