package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/brucargo/qmsync/internal/store"
)

type unreachableStore struct {
	store.StateStore
}

func (s *unreachableStore) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func newTestServer(stateStore store.StateStore) *MetricsServer {
	return NewMetricsServer(
		&MetricsServerConfig{Port: 0},
		prometheus.NewRegistry(),
		stateStore,
		zap.NewNop(),
	)
}

func TestMetricsServer_Health(t *testing.T) {
	s := newTestServer(store.NewMemoryStateStore())

	rec := httptest.NewRecorder()
	s.healthHandler(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestMetricsServer_ReadyWhenStoreReachable(t *testing.T) {
	s := newTestServer(store.NewMemoryStateStore())

	rec := httptest.NewRecorder()
	s.readyHandler(rec, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
}

func TestMetricsServer_NotReadyWhenStoreDown(t *testing.T) {
	s := newTestServer(&unreachableStore{store.NewMemoryStateStore()})

	rec := httptest.NewRecorder()
	s.readyHandler(rec, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, rec.Body.String(), "state_store_unavailable")
}
