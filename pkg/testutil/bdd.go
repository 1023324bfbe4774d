package testutil

import "testing"

// Scenario runs Given/When/Then steps as ordered subtests. Steps share state
// through closures, so once one fails the rest are skipped instead of
// reporting failures caused by the missing setup.
type Scenario struct {
	t      *testing.T
	failed bool
}

func NewScenario(t *testing.T) *Scenario {
	t.Helper()
	return &Scenario{t: t}
}

func (s *Scenario) Given(desc string, fn func(t *testing.T)) *Scenario {
	s.t.Helper()
	return s.step("Given", desc, fn)
}

func (s *Scenario) When(desc string, fn func(t *testing.T)) *Scenario {
	s.t.Helper()
	return s.step("When", desc, fn)
}

func (s *Scenario) Then(desc string, fn func(t *testing.T)) *Scenario {
	s.t.Helper()
	return s.step("Then", desc, fn)
}

func (s *Scenario) And(desc string, fn func(t *testing.T)) *Scenario {
	s.t.Helper()
	return s.step("And", desc, fn)
}

// Failed reports whether any step has failed so far.
func (s *Scenario) Failed() bool {
	return s.failed
}

func (s *Scenario) step(keyword, desc string, fn func(t *testing.T)) *Scenario {
	s.t.Helper()
	name := keyword + " " + desc
	if s.failed {
		s.t.Run(name, func(t *testing.T) {
			t.Skip("skipped: an earlier step failed")
		})
		return s
	}
	if !s.t.Run(name, fn) {
		s.failed = true
	}
	return s
}
