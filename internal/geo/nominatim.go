package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	dErrors "stoop/pkg/domain-errors"
)

// Geocoder searches free text and returns matches best-first.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]AddressCandidate, error)
}

// NominatimClient talks to a Nominatim-compatible /search endpoint.
type NominatimClient struct {
	baseURL      string
	userAgent    string
	countryCodes string
	httpClient   *http.Client
}

type NominatimOption func(*NominatimClient)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(c *http.Client) NominatimOption {
	return func(n *NominatimClient) {
		n.httpClient = c
	}
}

// WithCountryCodes restricts results to a comma-separated ISO 3166-1 list.
func WithCountryCodes(codes string) NominatimOption {
	return func(n *NominatimClient) {
		n.countryCodes = codes
	}
}

func NewNominatimClient(baseURL, userAgent string, opts ...NominatimOption) *NominatimClient {
	n := &NominatimClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search never retries. Deadline expiry maps to CodeTimeout; network errors,
// throttling and upstream 5xx map to CodeUnavailable.
func (n *NominatimClient) Search(ctx context.Context, query string, limit int) ([]AddressCandidate, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", strconv.Itoa(limit))
	if n.countryCodes != "" {
		q.Set("countrycodes", n.countryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocoder request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "address lookup timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "address lookup unavailable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, dErrors.New(dErrors.CodeUnavailable, "address lookup unavailable")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&places); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "address lookup timed out")
		}
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}

	out := make([]AddressCandidate, 0, len(places))
	for _, p := range places {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lng, errLng := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLng != nil || !ValidCoordinates(lat, lng) || p.DisplayName == "" {
			continue
		}
		out = append(out, AddressCandidate{DisplayName: p.DisplayName, Lat: lat, Lng: lng})
	}
	return out, nil
}
