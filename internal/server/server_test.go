package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lotmap/internal/batch"
	"github.com/sells-group/lotmap/internal/ingest"
	"github.com/sells-group/lotmap/internal/metrics"
	"github.com/sells-group/lotmap/internal/model"
	"github.com/sells-group/lotmap/internal/store"
)

const uploadCSV = "Номер лота;Характеристики имущества;Местонахождение имущества;Статус лота\n" +
	"1;\"Кадастровый номер: 77:01:000001:1; Площадь: 500.0\";г. Москва;Опубликован\n" +
	"2;без номера;г. Москва;Опубликован\n" +
	"3;Кадастровый номер: 99:01:000001:1;;Опубликован\n"

// fakeRunner places every lot whose cadastral number starts with "77".
type fakeRunner struct {
	mu     sync.Mutex
	limits []int
	err    error
}

func (f *fakeRunner) ResolveAll(_ context.Context, lots []model.LotRecord, limit int) (batch.Result, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.err != nil {
		return batch.Result{}, f.err
	}
	if limit > 0 && limit < len(lots) {
		lots = lots[:limit]
	}
	out := make([]model.LotRecord, len(lots))
	res := batch.Result{ByPrecision: map[model.Precision]int{}}
	for i, l := range lots {
		if strings.HasPrefix(l.CadastralNumber, "77") {
			l.Location = model.NewExact(55.75, 37.62, nil, model.SourceMeta{Service: "pkk"})
			res.Resolved++
		} else {
			res.Failed++
		}
		out[i] = l
	}
	res.Lots = out
	return res, nil
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestServer(t *testing.T, runner Runner, cfg Config, opts ...Option) *httptest.Server {
	t.Helper()
	cfg.Ingest = ingest.Options{HeaderRow: -1, HeaderHint: "Характеристики имущества"}
	srv := httptest.NewServer(New(runner, cfg, opts...).Router())
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, srv *httptest.Server, query, filename, content string) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, "file", filename, content)
	resp, err := http.Post(srv.URL+"/api/upload"+query, contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
	return resp
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, Config{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestUpload_ReturnsFeatureCollection(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTestServer(t, runner, Config{MaxLots: 100})

	resp := upload(t, srv, "", "lots.csv", uploadCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(HeaderRunID))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "77:01:000001:1", fc.Features[0].ID)
	assert.Equal(t, "EXACT", fc.Features[0].Properties["precision"])

	runner.mu.Lock()
	assert.Equal(t, []int{100}, runner.limits)
	runner.mu.Unlock()
}

func TestUpload_LimitIsCapped(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTestServer(t, runner, Config{MaxLots: 5})

	resp := upload(t, srv, "?limit=1", "lots.csv", uploadCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = upload(t, srv, "?limit=500", "lots.csv", uploadCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	runner.mu.Lock()
	assert.Equal(t, []int{1, 5}, runner.limits)
	runner.mu.Unlock()
}

func TestUpload_InvalidLimit(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, Config{})

	resp := upload(t, srv, "?limit=abc", "lots.csv", uploadCSV)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, resp), "limit")
}

func TestUpload_MissingFile(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, Config{})

	body, contentType := multipartBody(t, "other", "lots.csv", uploadCSV)
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing file", decodeError(t, resp))
}

func TestUpload_NotMultipart(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, Config{})

	resp, err := http.Post(srv.URL+"/api/upload", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpload_UnsupportedFile(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, Config{})

	resp := upload(t, srv, "", "lots.pdf", "%PDF-1.4")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unreadable file", decodeError(t, resp))
}

func TestUpload_NoLots(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, Config{})

	resp := upload(t, srv, "", "lots.csv", "Характеристики имущества\nбез номера\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, resp), "no lots")
}

func TestUpload_TooLarge(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, Config{MaxUploadBytes: 1024})

	big := uploadCSV + strings.Repeat("4;Кадастровый номер: 77:01:000001:4;г. Москва;Опубликован\n", 200)
	resp := upload(t, srv, "", "lots.csv", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestUpload_BatchInterrupted(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{err: context.Canceled}, Config{})

	resp := upload(t, srv, "", "lots.csv", uploadCSV)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUpload_SavesRun(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	srv := newTestServer(t, &fakeRunner{}, Config{}, WithStore(st))

	resp := upload(t, srv, "", "lots.csv", uploadCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	n, err := st.CountLots(context.Background(), resp.Header.Get(HeaderRunID))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, Config{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/upload", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://map.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	m.ObserveLot(metrics.ResultUnresolved)

	srv := newTestServer(t, &fakeRunner{}, Config{}, WithGatherer(reg))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `lotmap_lots_total{result="unresolved"} 1`)
}

func TestMetricsEndpoint_DisabledWithoutGatherer(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, Config{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLimit(t *testing.T) {
	s := New(&fakeRunner{}, Config{MaxLots: 10})

	n, err := s.limit("")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = s.limit("0")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = s.limit("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = s.limit("-1")
	assert.Error(t, err)
}
