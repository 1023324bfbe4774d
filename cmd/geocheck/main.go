// Command geocheck exercises the configured geocoder the way the onboarding
// client does: each stdin line is the address field's current text, fed
// through the debounced autocomplete. Only answers to the latest text are
// printed, one JSON object per line. A blank line clears the field.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"stoop/internal/geo"
	"stoop/internal/platform/config"
	"stoop/internal/platform/logger"
	"stoop/pkg/platform/circuit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := geo.NewResolver(
		geo.NewNominatimClient(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, geo.WithCountryCodes(cfg.Geocoder.CountryCodes)),
		geo.WithBreaker(circuit.New("geocoder",
			circuit.WithFailureThreshold(cfg.Geocoder.BreakerFailure),
			circuit.WithCooldown(cfg.Geocoder.BreakerCool),
		)),
		geo.WithSuggestLimit(cfg.Geocoder.SuggestLimit),
		geo.WithTimeout(cfg.Geocoder.Timeout),
		geo.WithLogger(log),
	)
	return watch(ctx, os.Stdin, os.Stdout, resolver, geo.DefaultDebounce)
}

type suggestionLine struct {
	Generation uint64                 `json:"generation"`
	Query      string                 `json:"query"`
	Candidates []geo.AddressCandidate `json:"candidates"`
	Error      string                 `json:"error,omitempty"`
}

// watch drives one autocomplete session from in until EOF, then waits for the
// answer to the final text unless the field was left cleared.
func watch(ctx context.Context, in io.Reader, out io.Writer, s geo.Suggester, debounce time.Duration) error {
	var (
		mu        sync.Mutex
		delivered uint64
		arrived   = make(chan struct{}, 1)
	)
	enc := json.NewEncoder(out)
	ac := geo.NewAutocomplete(s, debounce, func(r geo.Result) {
		mu.Lock()
		defer mu.Unlock()
		line := suggestionLine{Generation: r.Generation, Query: r.Query, Candidates: r.Candidates}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		_ = enc.Encode(line)
		delivered = r.Generation
		select {
		case arrived <- struct{}{}:
		default:
		}
	})

	var (
		last    uint64
		pending bool
	)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			ac.Clear()
			pending = false
			continue
		}
		last = ac.Update(ctx, text)
		pending = true
	}
	if err := scanner.Err(); err != nil {
		ac.Clear()
		return fmt.Errorf("read input: %w", err)
	}

	for pending {
		mu.Lock()
		done := delivered >= last
		mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-arrived:
		case <-ctx.Done():
			ac.Clear()
			return ctx.Err()
		}
	}
	return nil
}
