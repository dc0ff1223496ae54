package geocode

import (
	"testing"

	"github.com/jarcoal/httpmock"
	"golang.org/x/time/rate"

	"github.com/sells-group/lotmap/internal/resilience"
)

const searchURLPattern = `=~^https://nominatim\.openstreetmap\.org/search`

// newTestLimiter creates a rate limiter that effectively does not limit for tests.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// setupHTTPMock routes http.DefaultTransport through httpmock for the test.
func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

// newMockedClient builds a client on the default transport with no throttling
// and a single attempt per call.
func newMockedClient(opts ...Option) Client {
	base := []Option{WithLimiter(newTestLimiter()), WithRetry(resilience.NoRetry())}
	return NewClient(append(base, opts...)...)
}
