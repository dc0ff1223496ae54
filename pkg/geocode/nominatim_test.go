package geocode

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lotmap/internal/resilience"
)

const kazanResponse = `[{
	"lat": "55.7887",
	"lon": "49.1221",
	"display_name": "Казань, городской округ Казань, Республика Татарстан, Россия"
}]`

func TestGeocode_Match(t *testing.T) {
	setupHTTPMock(t)

	var gotQuery, gotUA string
	httpmock.RegisterResponder("GET", searchURLPattern,
		func(req *http.Request) (*http.Response, error) {
			gotQuery = req.URL.Query().Get("q")
			gotUA = req.Header.Get("User-Agent")
			assert.Equal(t, "json", req.URL.Query().Get("format"))
			assert.Equal(t, "1", req.URL.Query().Get("limit"))
			assert.Equal(t, "ru", req.URL.Query().Get("countrycodes"))
			return httpmock.NewStringResponse(http.StatusOK, kazanResponse), nil
		})

	res, err := newMockedClient().Geocode(context.Background(), "Республика Татарстан, Казань")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.InDelta(t, 55.7887, res.Latitude, 1e-6)
	assert.InDelta(t, 49.1221, res.Longitude, 1e-6)
	assert.Contains(t, res.DisplayName, "Казань")
	assert.Equal(t, "Республика Татарстан, Казань", gotQuery)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestGeocode_NoCandidates(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", searchURLPattern, httpmock.NewStringResponder(http.StatusOK, `[]`))

	res, err := newMockedClient().Geocode(context.Background(), "нигде")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestGeocode_EmptyQuerySkipsRequest(t *testing.T) {
	setupHTTPMock(t)

	res, err := newMockedClient().Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestGeocode_MalformedPayload(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", searchURLPattern, httpmock.NewStringResponder(http.StatusOK, `{"error":"oops"`))

	_, err := newMockedClient().Geocode(context.Background(), "Казань")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestGeocode_BadCoordinate(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", searchURLPattern,
		httpmock.NewStringResponder(http.StatusOK, `[{"lat":"north","lon":"49.1","display_name":"x"}]`))

	_, err := newMockedClient().Geocode(context.Background(), "Казань")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse lat")
}

func TestGeocode_ThrottledIsRetried(t *testing.T) {
	setupHTTPMock(t)

	calls := 0
	httpmock.RegisterResponder("GET", searchURLPattern,
		func(_ *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusTooManyRequests, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, kazanResponse), nil
		})

	retry := resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	c := NewClient(WithLimiter(newTestLimiter()), WithRetry(retry))

	res, err := c.Geocode(context.Background(), "Казань")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, 2, calls)
}

func TestGeocode_ServerErrorAfterRetries(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", searchURLPattern, httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	_, err := newMockedClient().Geocode(context.Background(), "Казань")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestGeocode_BreakerOpensAndFailsFast(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", searchURLPattern, httpmock.NewStringResponder(http.StatusBadGateway, ""))

	b := resilience.NewBreaker("nominatim", resilience.BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	c := newMockedClient(WithBreaker(b))

	for i := 0; i < 2; i++ {
		_, err := c.Geocode(context.Background(), "Казань")
		require.Error(t, err)
	}
	_, err := c.Geocode(context.Background(), "Казань")
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestGeocode_CustomBaseURLAndEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "ops@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, "lotmap-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, kazanResponse)
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL+"/"),
		WithEmail("ops@example.com"),
		WithUserAgent("lotmap-test"),
		WithLimiter(newTestLimiter()),
		WithTimeout(2*time.Second),
	)
	res, err := c.Geocode(context.Background(), "Казань")
	require.NoError(t, err)
	assert.True(t, res.Matched)
}

func TestGeocode_RespectsContextDuringRateLimit(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", searchURLPattern, httpmock.NewStringResponder(http.StatusOK, kazanResponse))

	c := NewClient(WithRateLimit(0.001), WithRetry(resilience.NoRetry()))
	_, err := c.Geocode(context.Background(), "Казань")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Geocode(ctx, "Казань")
	require.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}
