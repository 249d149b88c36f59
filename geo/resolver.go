package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/verdantlabs/arbor/core"
)

// ScoringWeights are the per-component weights used to rank forward-geocoding
// candidates against the original query. The defaults are empirically chosen;
// they are configuration, not fixed physics.
type ScoringWeights struct {
	HouseNumber int
	Road        int
	Locality    int
	Postcode    int
}

// DefaultScoringWeights returns the default candidate scoring weights
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{HouseNumber: 3, Road: 2, Locality: 2, Postcode: 1}
}

// LocationInput is the ambiguous spatial reference a tool call may carry:
// explicit coordinates, a free-text address, or nothing.
type LocationInput struct {
	Lat     *float64
	Lng     *float64
	Address string
}

// Resolver turns a LocationInput into concrete coordinates using a
// Nominatim-style forward/reverse geocoding provider.
//
// Resolution failures (no candidates, transport errors, non-2xx responses)
// are reported as a nil result, never as an error escaping the resolver:
// callers decide whether a missing location is fatal to their operation.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
	weights    ScoringWeights
}

// NewResolver creates a resolver against the given geocoding endpoint
func NewResolver(baseURL string, logger core.Logger) *Resolver {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Resolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		weights:    DefaultScoringWeights(),
	}
}

// SetScoringWeights overrides the candidate scoring weights
func (r *Resolver) SetScoringWeights(w ScoringWeights) {
	r.weights = w
}

// ResolveEventLocation resolves the input in fixed order: explicit valid
// coordinates win and the address is ignored; otherwise a non-empty address
// is forward-geocoded; otherwise nil is returned, which callers must treat
// as a request for disambiguation from the user, not a default.
func (r *Resolver) ResolveEventLocation(ctx context.Context, in LocationInput) *Coordinates {
	if in.Lat != nil && in.Lng != nil && IsValidLatLng(*in.Lat, *in.Lng) {
		return &Coordinates{Lat: *in.Lat, Lng: *in.Lng}
	}

	if address := strings.TrimSpace(in.Address); address != "" {
		return r.forwardGeocode(ctx, address)
	}

	return nil
}

// ReverseGeocode returns the provider's display label for the coordinates,
// or "" when the provider has none or the call fails. Callers fall back to
// FormatCoordinates for display.
func (r *Resolver) ReverseGeocode(ctx context.Context, lat, lng float64) string {
	endpoint := fmt.Sprintf("%s/reverse?format=json&lat=%s&lon=%s",
		r.baseURL,
		url.QueryEscape(strconv.FormatFloat(lat, 'f', -1, 64)),
		url.QueryEscape(strconv.FormatFloat(lng, 'f', -1, 64)))

	body, err := r.get(ctx, endpoint)
	if err != nil {
		r.logger.Warn("Reverse geocoding failed", map[string]interface{}{
			"operation": "geocode_reverse",
			"error":     err.Error(),
		})
		return ""
	}

	var result struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		r.logger.Warn("Reverse geocoding returned malformed body", map[string]interface{}{
			"operation": "geocode_reverse",
			"error":     err.Error(),
		})
		return ""
	}
	return result.DisplayName
}

// geocodeCandidate is the provider's forward-geocoding result row
type geocodeCandidate struct {
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	DisplayName string           `json:"display_name"`
	Address     candidateAddress `json:"address"`
}

type candidateAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	City        string `json:"city"`
	Suburb      string `json:"suburb"`
	Postcode    string `json:"postcode"`
}

// structuredGuess is the street/city split derived from the free-text query.
// The first token containing a digit ends the street fragment and doubles as
// the house number guess.
type structuredGuess struct {
	Street      string
	City        string
	HouseNumber string
}

func parseQuery(query string) structuredGuess {
	tokens := strings.Fields(query)
	for i, token := range tokens {
		if containsDigit(token) {
			return structuredGuess{
				Street:      strings.Join(tokens[:i+1], " "),
				City:        strings.Join(tokens[i+1:], " "),
				HouseNumber: token,
			}
		}
	}
	return structuredGuess{}
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// forwardGeocode resolves a free-text address with disambiguation scoring.
// Flat queries carrying a house number often return street-centroid results
// lacking the number; when that happens exactly one structured retry is
// issued, and its result set supersedes the first pass if non-empty.
func (r *Resolver) forwardGeocode(ctx context.Context, query string) *Coordinates {
	candidates, err := r.search(ctx, url.Values{"q": []string{query}})
	if err != nil {
		r.logger.Warn("Forward geocoding failed", map[string]interface{}{
			"operation": "geocode_forward",
			"query":     query,
			"error":     err.Error(),
		})
		return nil
	}
	if len(candidates) == 0 {
		r.logger.Debug("Forward geocoding returned no candidates", map[string]interface{}{
			"operation": "geocode_forward",
			"query":     query,
		})
		return nil
	}

	guess := parseQuery(query)
	if guess.HouseNumber != "" && !anyHasHouseNumber(candidates) {
		params := url.Values{"street": []string{guess.Street}}
		if guess.City != "" {
			params.Set("city", guess.City)
		}
		retried, err := r.search(ctx, params)
		if err != nil {
			r.logger.Warn("Structured geocoding retry failed", map[string]interface{}{
				"operation": "geocode_forward_retry",
				"street":    guess.Street,
				"city":      guess.City,
				"error":     err.Error(),
			})
		} else if len(retried) > 0 {
			candidates = retried
		}
	}

	best := r.pickBest(query, candidates)
	if best == nil {
		r.logger.Debug("All geocoding candidates had invalid coordinates", map[string]interface{}{
			"operation":  "geocode_forward",
			"query":      query,
			"candidates": len(candidates),
		})
	}
	return best
}

func anyHasHouseNumber(candidates []geocodeCandidate) bool {
	for _, c := range candidates {
		if c.Address.HouseNumber != "" {
			return true
		}
	}
	return false
}

// pickBest scores candidates against the original query and returns the
// coordinates of the highest-scoring valid one. Ties keep provider order.
func (r *Resolver) pickBest(query string, candidates []geocodeCandidate) *Coordinates {
	normQuery := normalize(query)

	var best *Coordinates
	bestScore := -1
	for _, c := range candidates {
		lat, errLat := strconv.ParseFloat(c.Lat, 64)
		lng, errLng := strconv.ParseFloat(c.Lon, 64)
		if errLat != nil || errLng != nil || !IsValidLatLng(lat, lng) {
			continue
		}

		score := r.scoreCandidate(normQuery, c.Address)
		if score > bestScore {
			bestScore = score
			best = &Coordinates{Lat: lat, Lng: lng}
		}
	}
	return best
}

func (r *Resolver) scoreCandidate(normQuery string, addr candidateAddress) int {
	score := 0
	if addr.HouseNumber != "" && strings.Contains(normQuery, normalize(addr.HouseNumber)) {
		score += r.weights.HouseNumber
	}
	if addr.Road != "" && strings.Contains(normQuery, normalize(addr.Road)) {
		score += r.weights.Road
	}
	switch {
	case addr.City != "" && strings.Contains(normQuery, normalize(addr.City)):
		score += r.weights.Locality
	case addr.Suburb != "" && strings.Contains(normQuery, normalize(addr.Suburb)):
		score += r.weights.Locality
	}
	if addr.Postcode != "" && strings.Contains(normQuery, normalize(addr.Postcode)) {
		score += r.weights.Postcode
	}
	return score
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *Resolver) search(ctx context.Context, params url.Values) ([]geocodeCandidate, error) {
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "10")

	body, err := r.get(ctx, r.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var candidates []geocodeCandidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		return nil, fmt.Errorf("parsing geocoder response: %w", err)
	}
	return candidates, nil
}

func (r *Resolver) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating geocoder request: %w", err)
	}
	req.Header.Set("User-Agent", "arbor/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: geocoder status %d", core.ErrRequestFailed, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
