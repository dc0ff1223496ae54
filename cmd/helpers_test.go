package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/lotmap/internal/config"
)

const lotsCSV = "Номер лота;Характеристики имущества;Местонахождение имущества;Статус лота;Начальная цена;Субъект РФ\n" +
	"1;\"Кадастровый номер: 77:01:000001:1; Площадь: 500.0; Вид разрешённого использования: ИЖС\";г. Москва;Опубликован;100 000,00;Москва\n" +
	"2;без номера;г. Москва;Опубликован;;Москва\n" +
	"3;\"Кадастровый номер: 77:01:000001:2; Площадь: 1200\";г. Москва;Завершен;250000;Москва\n"

// loadTestConfig loads defaults into cfg from an empty working directory.
func loadTestConfig(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())

	c, err := config.Load("")
	require.NoError(t, err)
	cfg = c
	t.Cleanup(func() { cfg = nil })
}

// writeLots writes content under a temp dir and returns its path.
func writeLots(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// registryServer answers every parcel lookup with the same centroid.
func registryServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"feature": {
			"attrs": {"cn": "77:01:000001:1"},
			"center": {"x": 37.62, "y": 55.75}
		}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// pointAt points both remote clients at srv with no pacing.
func pointAt(srv *httptest.Server) {
	cfg.PKK.BaseURL = srv.URL
	cfg.PKK.RateLimit = 1000
	cfg.PKK.MaxAttempts = 1
	cfg.Geocoder.BaseURL = srv.URL
	cfg.Geocoder.MaxAttempts = 1
}

func runWithContext(t *testing.T, run func() error) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, c := range rootCmd.Commands() {
		c.SetContext(ctx)
	}
	return run()
}
