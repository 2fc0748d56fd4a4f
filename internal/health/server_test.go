package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheck struct{ err error }

func (f fakeCheck) Ping(context.Context) error { return f.err }
func (f fakeCheck) CheckModel(context.Context) error { return f.err }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(Config{ServiceName: "keiba", Version: "1.0.0", Logger: quietLogger()})

	rec := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "keiba", resp.Service)
	assert.Equal(t, "1.0.0", resp.Version)
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		model      error
		db         error
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "all ok",
			ready:      true,
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"service": "ok", "model": "ok", "database": "ok"},
		},
		{
			name:       "not marked ready",
			ready:      false,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "not_ready", "model": "ok", "database": "ok"},
		},
		{
			name:       "no model",
			ready:      true,
			model:      errors.New("no artifact"),
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "ok", "model": "error: no artifact", "database": "ok"},
		},
		{
			name:       "database down",
			ready:      true,
			db:         errors.New("refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "ok", "model": "ok", "database": "error: refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(Config{
				ServiceName: "keiba",
				Logger:      quietLogger(),
				Model:       fakeCheck{err: tt.model},
				DB:          fakeCheck{err: tt.db},
			})
			s.SetReady(tt.ready)

			rec := get(t, s.Handler(), "/ready")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ReadyResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

func TestReadyWithoutDependencies(t *testing.T) {
	s := NewServer(Config{Logger: quietLogger()})
	s.SetReady(true)

	rec := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsRouteOnlyWhenConfigured(t *testing.T) {
	without := NewServer(Config{Logger: quietLogger()})
	assert.Equal(t, http.StatusNotFound, get(t, without.Handler(), "/metrics").Code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "keiba_up 1\n")
	})
	with := NewServer(Config{Logger: quietLogger(), Metrics: metrics})
	rec := get(t, with.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "keiba_up 1\n", rec.Body.String())
}

func TestStartAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer(Config{Addr: "127.0.0.1:0", Logger: quietLogger()})
	require.NoError(t, s.Start(ctx))
	require.NotEmpty(t, s.Addr())

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + s.Addr() + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown())
}

func TestShutdownBeforeStart(t *testing.T) {
	assert.NoError(t, NewServer(Config{}).Shutdown())
}
