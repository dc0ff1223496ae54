package pkk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lotmap/internal/resilience"
)

type featureResponse struct {
	Feature *feature `json:"feature"`
}

type feature struct {
	Attrs struct {
		CN           string    `json:"cn"`
		Address      string    `json:"address"`
		AreaValue    flexFloat `json:"area_value"`
		CategoryType string    `json:"category_type"`
	} `json:"attrs"`
	Center *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"center"`
	Extent *struct {
		XMin float64 `json:"xmin"`
		YMin float64 `json:"ymin"`
		XMax float64 `json:"xmax"`
		YMax float64 `json:"ymax"`
	} `json:"extent"`
}

// flexFloat accepts a JSON number, a numeric string, or null.
type flexFloat struct {
	Value *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return eris.Wrapf(err, "pkk: parse number %q", s)
	}
	f.Value = &v
	return nil
}

// Lookup implements Client.
func (c *client) Lookup(ctx context.Context, cadastral string) (*Parcel, error) {
	cadastral = strings.TrimSpace(cadastral)
	if cadastral == "" {
		return nil, ErrNotFound
	}

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("pkk", cadastral)
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Parcel, error) {
		return resilience.Call(ctx, c.breaker, func(ctx context.Context) (*Parcel, error) {
			return c.fetch(ctx, cadastral)
		})
	})
}

func (c *client) fetch(ctx context.Context, cadastral string) (*Parcel, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "pkk: rate limit")
	}

	reqURL := fmt.Sprintf("%s/api/features/%d/%s",
		strings.TrimRight(c.baseURL, "/"), parcelLayer, url.PathEscape(cadastral))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pkk: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pkk: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("pkk", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pkk: read body")
	}

	var fr featureResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, eris.Wrap(err, "pkk: parse response")
	}
	if fr.Feature == nil || fr.Feature.Center == nil {
		return nil, ErrNotFound
	}

	f := fr.Feature
	lat, lng := toWGS84(f.Center.X, f.Center.Y)
	p := &Parcel{
		CadastralNumber: cadastral,
		Lat:             lat,
		Lng:             lng,
		Area:            f.Attrs.AreaValue.Value,
		Category:        f.Attrs.CategoryType,
		Address:         f.Attrs.Address,
	}
	if f.Attrs.CN != "" {
		p.CadastralNumber = f.Attrs.CN
	}
	if e := f.Extent; e != nil {
		minLat, minLng := toWGS84(e.XMin, e.YMin)
		maxLat, maxLng := toWGS84(e.XMax, e.YMax)
		p.Extent = &Extent{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng}
	}
	return p, nil
}
