package sim

import "sync"

// ticket orders publication. The zero ticket is unordered.
type ticket uint64

// sequencer hands out tickets under the engine lock and lets their holders
// publish strictly in ticket order.
type sequencer struct {
	next    ticket // guarded by Engine.mu
	mu      sync.Mutex
	cond    *sync.Cond
	serving ticket
}

func (s *sequencer) init() {
	s.cond = sync.NewCond(&s.mu)
	s.next = 1
	s.serving = 1
}

// issue must be called with the engine lock held.
func (s *sequencer) issue(ordered bool) ticket {
	if !ordered {
		return 0
	}
	t := s.next
	s.next++
	return t
}

func (s *sequencer) wait(t ticket) {
	if t == 0 {
		return
	}
	s.mu.Lock()
	for s.serving != t {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

func (s *sequencer) done(t ticket) {
	if t == 0 {
		return
	}
	s.mu.Lock()
	s.serving++
	s.mu.Unlock()
	s.cond.Broadcast()
}
