package rtc

import "github.com/Mond1c/webrtc-grabber-go/internal/protocol"

// CandidateBuffer holds server-relayed remote candidates that arrive before
// the remote description is set. Until Flush, candidates queue in receipt
// order; after Flush, they pass straight through to the sink.
//
// The buffer is not goroutine-safe. The session run loop is its only caller,
// which is also what guarantees that Flush completes before any candidate
// received afterwards is offered.
type CandidateBuffer struct {
	sink    func(protocol.ServerCandidate)
	ready   bool
	pending []protocol.ServerCandidate
}

// NewCandidateBuffer creates a buffer delivering into sink. The sink is
// responsible for logging per-candidate application failures; a rejected
// candidate never fails the negotiation.
func NewCandidateBuffer(sink func(protocol.ServerCandidate)) *CandidateBuffer {
	return &CandidateBuffer{sink: sink}
}

// Offer delivers the candidate immediately when the remote description is
// set, otherwise appends it to the pending queue.
func (b *CandidateBuffer) Offer(cand protocol.ServerCandidate) {
	if b.ready {
		b.sink(cand)
		return
	}
	b.pending = append(b.pending, cand)
}

// Flush marks the remote description as set and delivers every pending
// candidate in receipt order, exactly once. Later Offer calls bypass the
// queue entirely.
func (b *CandidateBuffer) Flush() {
	b.ready = true
	for _, cand := range b.pending {
		b.sink(cand)
	}
	b.pending = nil
}

// Len reports the number of buffered candidates.
func (b *CandidateBuffer) Len() int {
	return len(b.pending)
}
