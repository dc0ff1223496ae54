// Package pkk looks up land parcels by cadastral number in the Rosreestr
// public cadastral map (PKK) API.
package pkk

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lotmap/internal/resilience"
)

const (
	// DefaultBaseURL is the public PKK endpoint.
	DefaultBaseURL = "https://pkk.rosreestr.ru"
	// DefaultUserAgent is sent with every request; PKK rejects empty agents.
	DefaultUserAgent = "Mozilla/5.0 (compatible; lotmap/1.0)"
	// parcelLayer is the PKK feature type for land parcels.
	parcelLayer = 1
)

// ErrNotFound is returned when PKK has no parcel for the number.
var ErrNotFound = eris.New("pkk: parcel not found")

// Client looks up parcels by cadastral number.
type Client interface {
	// Lookup returns the parcel, or ErrNotFound.
	Lookup(ctx context.Context, cadastral string) (*Parcel, error)
}

// Extent is a parcel bounding box in WGS84 degrees.
type Extent struct {
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// Parcel is the subset of a PKK feature the pipeline uses.
type Parcel struct {
	CadastralNumber string
	Lat             float64
	Lng             float64
	Extent          *Extent
	Area            *float64
	Category        string
	Address         string
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithBaseURL points the client at another PKK host.
func WithBaseURL(u string) Option {
	return func(c *client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithInsecureTLS disables certificate verification. PKK is served with a
// certificate from the Russian national CA, which most trust stores lack.
func WithInsecureTLS(skip bool) Option {
	return func(c *client) {
		if !skip {
			return
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		c.httpClient.Transport = tr
	}
}

// WithRateLimit sets the sustained requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// WithLimiter shares an existing limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *client) {
		c.limiter = l
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

// WithBreaker guards requests with a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *client) {
		c.breaker = b
	}
}

type client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	breaker    *resilience.Breaker
}

// NewClient creates a PKK Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		limiter:    rate.NewLimiter(3, 1),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
