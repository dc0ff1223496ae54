package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lotmap/internal/resilience"
)

// nominatimPlace is one element of the /search JSON array.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Client. The query is sent as given; callers normalize it
// with NormalizeAddress first so that cache keys and requests agree.
func (g *geocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Matched: false}, nil
	}

	cfg := g.retry
	cfg.OnRetry = resilience.RetryLogger("nominatim", query)
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Result, error) {
		return resilience.Call(ctx, g.breaker, func(ctx context.Context) (*Result, error) {
			return g.search(ctx, query)
		})
	})
}

func (g *geocoder) search(ctx context.Context, query string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}
	if g.countryCodes != "" {
		params.Set("countrycodes", g.countryCodes)
	}
	if g.email != "" {
		params.Set("email", g.email)
	}

	reqURL := strings.TrimRight(g.baseURL, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept-Language", "ru")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("geocode", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if len(places) == 0 {
		zap.L().Debug("geocode: no candidates", zap.String("query", query))
		return &Result{Matched: false}, nil
	}

	top := places[0]
	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: parse lat %q", top.Lat)
	}
	lng, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: parse lon %q", top.Lon)
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lng,
		DisplayName: top.DisplayName,
		Matched:     true,
	}, nil
}
