// internal/input/script.go
package input

import "sync"

// Step is one scripted command delivered after Wait empty polls.
type Step struct {
	Wait    int
	Command Command
}

// Script replays a fixed command sequence, counting polls as ticks.
type Script struct {
	mu     sync.Mutex
	steps  []Step
	next   int
	waited int
	onDone func()
}

// NewScript creates a script from steps.
func NewScript(steps ...Step) *Script {
	return &Script{steps: steps}
}

// OnDone registers fn to run once, on the first poll after the last step.
func (s *Script) OnDone(fn func()) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDone = fn
	return s
}

// Poll implements Source.
func (s *Script) Poll() (Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.steps) {
		if s.onDone != nil {
			fn := s.onDone
			s.onDone = nil
			fn()
		}
		return 0, false
	}

	step := s.steps[s.next]
	if s.waited < step.Wait {
		s.waited++
		return 0, false
	}

	s.next++
	s.waited = 0
	return step.Command, true
}

// Done reports whether every step has been delivered
func (s *Script) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next >= len(s.steps)
}
