package chain

// Sequencer is the per-task ordering token: it hands out consecutive nonces starting from the account's pending
// nonce so several writes can be submitted without waiting on each other. It is not safe for concurrent use.
type Sequencer struct {
	next   uint64
	issued int
}

func NewSequencer(start uint64) *Sequencer {
	return &Sequencer{next: start}
}

func (s *Sequencer) Next() uint64 {
	n := s.next
	s.next++
	s.issued++
	return n
}

func (s *Sequencer) Peek() uint64 {
	return s.next
}

// Issued counts nonces handed out so far.
func (s *Sequencer) Issued() int {
	return s.issued
}
