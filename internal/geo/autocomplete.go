package geo

import (
	"context"
	"sync"
	"time"

	pstrings "stoop/pkg/platform/strings"
)

// DefaultDebounce is the quiet period after the last keystroke before a
// lookup is sent.
const DefaultDebounce = 350 * time.Millisecond

// Suggester is the lookup Autocomplete drives; *Resolver satisfies it.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]AddressCandidate, error)
}

// Result is one completed lookup.
type Result struct {
	Generation uint64
	Query      string
	Candidates []AddressCandidate
	Err        error
}

// Autocomplete debounces keystrokes into suggestion lookups. Every Update or
// Clear starts a new generation; lookups belonging to an older generation are
// cancelled and their results dropped, so deliver only ever sees the answer
// to the latest input.
type Autocomplete struct {
	suggester Suggester
	debounce  time.Duration
	deliver   func(Result)

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc

	deliverMu sync.Mutex
}

func NewAutocomplete(s Suggester, debounce time.Duration, deliver func(Result)) *Autocomplete {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Autocomplete{suggester: s, debounce: debounce, deliver: deliver}
}

// Update records new input and returns its generation. Input shorter than
// MinQueryRunes clears the suggestions immediately.
func (a *Autocomplete) Update(ctx context.Context, query string) uint64 {
	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.stopLocked()

	if pstrings.RuneLen(query) < MinQueryRunes {
		a.mu.Unlock()
		a.emit(gen, Result{Generation: gen, Query: query, Candidates: []AddressCandidate{}})
		return gen
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.timer = time.AfterFunc(a.debounce, func() {
		a.run(runCtx, gen, query)
	})
	a.mu.Unlock()
	return gen
}

// Clear supersedes any pending or in-flight lookup without starting another.
func (a *Autocomplete) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.stopLocked()
}

// Generation returns the current generation.
func (a *Autocomplete) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen
}

func (a *Autocomplete) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *Autocomplete) run(ctx context.Context, gen uint64, query string) {
	candidates, err := a.suggester.Suggest(ctx, query)
	if ctx.Err() != nil {
		return
	}
	a.emit(gen, Result{Generation: gen, Query: query, Candidates: candidates, Err: err})
}

func (a *Autocomplete) emit(gen uint64, r Result) {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()
	if a.Generation() != gen {
		return
	}
	a.deliver(r)
}
