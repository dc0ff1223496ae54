// Package geocode resolves free-text Russian addresses to coordinates through
// the Nominatim search API.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/lotmap/internal/resilience"
)

const (
	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifies the application, as the usage policy requires.
	DefaultUserAgent = "Cadastral Map App/1.0"
)

// Client geocodes one address at a time.
type Client interface {
	// Geocode returns the top match for query. A query with no candidates
	// yields a Result with Matched=false and a nil error.
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result is the top geocoder candidate for a query.
type Result struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
	Matched     bool    `json:"matched"`
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

// WithBaseURL points the client at another Nominatim instance.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		if ua != "" {
			g.userAgent = ua
		}
	}
}

// WithEmail adds a contact address to each request.
func WithEmail(email string) Option {
	return func(g *geocoder) {
		g.email = email
	}
}

// WithCountryCodes restricts matches to the given ISO country codes, e.g. "ru".
func WithCountryCodes(codes string) Option {
	return func(g *geocoder) {
		g.countryCodes = codes
	}
}

// WithRateLimit sets the sustained requests per second. Nominatim's policy
// allows at most one.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// WithLimiter shares an existing limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *geocoder) {
		g.limiter = l
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *geocoder) {
		g.retry = cfg
	}
}

// WithBreaker guards requests with a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(g *geocoder) {
		g.breaker = b
	}
}

type geocoder struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	email        string
	countryCodes string
	limiter      *rate.Limiter
	retry        resilience.RetryConfig
	breaker      *resilience.Breaker
}

// NewClient creates a Nominatim Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		baseURL:      DefaultBaseURL,
		userAgent:    DefaultUserAgent,
		countryCodes: "ru",
		limiter:      rate.NewLimiter(1, 1),
		retry:        resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
