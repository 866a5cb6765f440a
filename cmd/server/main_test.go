package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/VisitPulse/internal/config"
)

const snapshotJSON = `[
  {"id": 4, "name": " Anna ", "age": 8, "visitingWith": "family",
   "topicRanking": ["WATER","FOOD","ENERGY","TECHNOLOGY","CLIMATE","HEALTH"],
   "mostImportantTopic": "HEALTH", "feelingBefore": 4, "confidenceBefore": 3,
   "createdAt": "2026-05-01T10:00:00Z"},
  {"id": 9, "name": "Bram", "feelingAfter": 3, "isNewCheckoutUser": true,
   "createdAt": "2026-05-01T11:00:00Z"}
]`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VISITPULSE_DB_DRIVER", "sqlite")
	t.Setenv("VISITPULSE_DB_PATH", filepath.Join(dir, "data", "visitpulse.db"))
	t.Setenv("VISITPULSE_ADMIN_CODE", "letmein")
	t.Setenv("VISITPULSE_LOG_MODE", "prod")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateImportExportReset(t *testing.T) {
	dir := setupEnv(t)
	snap := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(snap, []byte(snapshotJSON), 0o600))

	_, err := run(t, "migrate", "--import", snap)
	require.NoError(t, err)
	// second import is skipped because the table is no longer empty
	_, err = run(t, "migrate", "--import", snap)
	require.NoError(t, err)

	out, err := run(t, "export")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,"))
	assert.Contains(t, lines[1], "Anna")
	assert.Contains(t, lines[1], "checked_in")
	assert.Contains(t, lines[2], "checkout_only")

	csvPath := filepath.Join(dir, "out.csv")
	_, err = run(t, "export", "--out", csvPath)
	require.NoError(t, err)
	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, out, string(b))

	_, err = run(t, "reset", "--code", "nope")
	require.EqualError(t, err, "invalid access code")

	out, err = run(t, "reset", "--code", "letmein")
	require.NoError(t, err)
	assert.Equal(t, "deleted 2 responses\n", out)
}

func TestMigrateNeedsDBPath(t *testing.T) {
	t.Setenv("VISITPULSE_DB_PATH", "")
	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VISITPULSE_DB_PATH")
}

func TestFrontendHandler(t *testing.T) {
	h, err := frontendHandler(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, h)

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("kiosk"), 0o600))
	h, err = frontendHandler(&config.Config{StaticDir: static, DevFrontend: "http://ignored"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kiosk")

	_, err = frontendHandler(&config.Config{DevFrontend: "not a url"})
	assert.Error(t, err)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=3600")
		_, _ = w.Write([]byte("vite"))
	}))
	defer upstream.Close()
	h, err = frontendHandler(&config.Config{DevFrontend: upstream.URL})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "vite", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
}
