package orchestration

import "strings"

const fragmentSeparator = " "

// transcriptAccumulator buffers final fragments between turn dispatches. It
// is only touched from the event loop.
type transcriptAccumulator struct {
	fragments []string
}

func (t *transcriptAccumulator) append(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}
	t.fragments = append(t.fragments, fragment)
}

// drain returns the pending turn and resets the buffer.
func (t *transcriptAccumulator) drain() string {
	turn := strings.Join(t.fragments, fragmentSeparator)
	t.fragments = nil
	return turn
}

func (t *transcriptAccumulator) empty() bool {
	return len(t.fragments) == 0
}
