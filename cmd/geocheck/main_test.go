package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoop/internal/geo"
)

type recordingSuggester struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (r *recordingSuggester) Suggest(_ context.Context, query string) ([]geo.AddressCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return []geo.AddressCandidate{{DisplayName: query + ", New York", Lat: 40.7599, Lng: -73.9845}}, nil
}

func (r *recordingSuggester) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func decodeLines(t *testing.T, out *bytes.Buffer) []suggestionLine {
	t.Helper()
	var lines []suggestionLine
	dec := json.NewDecoder(out)
	for dec.More() {
		var l suggestionLine
		require.NoError(t, dec.Decode(&l))
		lines = append(lines, l)
	}
	return lines
}

func TestWatchPrintsOnlyTheLatestText(t *testing.T) {
	s := &recordingSuggester{}
	var out bytes.Buffer

	err := watch(context.Background(), strings.NewReader("12\n123 Ma\n123 Main St\n"), &out, s, 50*time.Millisecond)
	require.NoError(t, err)

	lines := decodeLines(t, &out)
	require.NotEmpty(t, lines)
	assert.Equal(t, "12", lines[0].Query, "short text clears suggestions immediately")
	assert.Empty(t, lines[0].Candidates)

	final := lines[len(lines)-1]
	assert.Equal(t, "123 Main St", final.Query)
	require.Len(t, final.Candidates, 1)
	assert.Equal(t, "123 Main St, New York", final.Candidates[0].DisplayName)
	assert.Equal(t, []string{"123 Main St"}, s.seen(), "superseded text never reaches the geocoder")
}

func TestWatchClearedFieldDoesNotWait(t *testing.T) {
	s := &recordingSuggester{}
	var out bytes.Buffer

	err := watch(context.Background(), strings.NewReader("123 Main St\n\n"), &out, s, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, decodeLines(t, &out))
	assert.Empty(t, s.seen())
}

func TestWatchReportsLookupErrors(t *testing.T) {
	s := &recordingSuggester{err: errors.New("geocoder unavailable")}
	var out bytes.Buffer

	err := watch(context.Background(), strings.NewReader("123 Main St\n"), &out, s, time.Millisecond)
	require.NoError(t, err)

	lines := decodeLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, "geocoder unavailable", lines[0].Error)
}

func TestWatchStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := watch(ctx, strings.NewReader("123 Main St\n"), &bytes.Buffer{}, &recordingSuggester{}, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
