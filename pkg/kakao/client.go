// Package kakao provides address geocoding via the Kakao Local API.
package kakao

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/refill-spot/enrich-cli/internal/address"
)

// DefaultBaseURL is the Kakao Local address search endpoint.
const DefaultBaseURL = "https://dapi.kakao.com/v2/local/search/address.json"

// Client geocodes free-text addresses.
type Client interface {
	// Geocode resolves an address string to coordinates. A miss is returned
	// as an unmatched Result, not an error; errors are transport-level only.
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds one geocode outcome.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	Confidence       float64
	Matched          bool
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) { c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)) }
}

// WithDailyLimit caps the number of requests per process lifetime. The Kakao
// free tier allows 300k address lookups per day.
func WithDailyLimit(n int) Option {
	return func(c *client) { c.dailyLimit = n }
}

// WithRetryWait sets the pause before the single 429 retry.
func WithRetryWait(d time.Duration) Option {
	return func(c *client) { c.retryWait = d }
}

type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	dailyLimit int
	retryWait  time.Duration

	// Atomic: one client is shared across concurrent enhancement workers.
	requestCount atomic.Int64
}

// NewClient creates a Kakao geocoding client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		dailyLimit: 300000,
		retryWait:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// kakaoResponse is the JSON shape of an address search response. Kakao
// returns coordinates as strings.
type kakaoResponse struct {
	Documents []struct {
		AddressName string `json:"address_name"`
		X           string `json:"x"` // longitude
		Y           string `json:"y"` // latitude
	} `json:"documents"`
}

// Geocode resolves an address, retrying once after a short wait on HTTP 429.
// Any other non-2xx status or unusable body is an unmatched result.
func (c *client) Geocode(ctx context.Context, query string) (*Result, error) {
	if c.requestCount.Load() >= int64(c.dailyLimit) {
		zap.L().Warn("kakao: daily request limit reached", zap.Int("limit", c.dailyLimit))
		return &Result{Matched: false}, nil
	}

	result, status, err := c.doRequest(ctx, query)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		zap.L().Warn("kakao: rate limited, retrying once", zap.String("query", query))
		select {
		case <-time.After(c.retryWait):
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "kakao: retry wait")
		}
		result, status, err = c.doRequest(ctx, query)
		if err != nil {
			return nil, err
		}
	}

	if status != http.StatusOK || result == nil {
		if status != http.StatusOK {
			zap.L().Warn("kakao: geocode failed", zap.Int("status", status), zap.String("query", query))
		}
		return &Result{Matched: false}, nil
	}
	return result, nil
}

// doRequest performs one API call. The returned result is nil when the
// response carried no candidates.
func (c *client) doRequest(ctx context.Context, query string) (*Result, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, eris.Wrap(err, "kakao: rate limit")
	}

	params := url.Values{
		"query":        {query},
		"analyze_type": {"similar"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "kakao: build request")
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "kakao: request")
	}
	defer resp.Body.Close() //nolint:errcheck
	c.requestCount.Add(1)

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "kakao: read body")
	}

	var kr kakaoResponse
	if err := json.Unmarshal(body, &kr); err != nil {
		// Malformed JSON is a miss, not a batch-level failure.
		zap.L().Warn("kakao: malformed response", zap.Error(err))
		return nil, resp.StatusCode, nil
	}
	if len(kr.Documents) == 0 {
		return nil, resp.StatusCode, nil
	}

	doc := kr.Documents[0]
	lat, latErr := strconv.ParseFloat(doc.Y, 64)
	lng, lngErr := strconv.ParseFloat(doc.X, 64)
	if latErr != nil || lngErr != nil {
		zap.L().Warn("kakao: unparseable coordinates",
			zap.String("x", doc.X), zap.String("y", doc.Y))
		return nil, resp.StatusCode, nil
	}

	return &Result{
		Latitude:         lat,
		Longitude:        lng,
		FormattedAddress: doc.AddressName,
		Confidence:       confidence(query, doc.AddressName),
		Matched:          true,
	}, resp.StatusCode, nil
}

// confidence scores how well the returned address matches the query, based
// on character-set similarity, boosted and capped at 1.0. When neither side
// carries comparable characters the match is indeterminate and scored at the
// neutral midpoint; disjoint character sets score zero.
func confidence(query, formatted string) float64 {
	if !address.HasComparableChars(query) && !address.HasComparableChars(formatted) {
		return 0.5
	}
	if boosted := address.Similarity(query, formatted) * 1.2; boosted < 1.0 {
		return boosted
	}
	return 1.0
}
