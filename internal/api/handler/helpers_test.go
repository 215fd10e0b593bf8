package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/daap14/contractd/internal/blueprint"
	"github.com/daap14/contractd/internal/contract"
	"github.com/daap14/contractd/internal/lifecycle"
)

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, w
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// --- Mocks ---

// mockBlueprintRepo overrides selected Repository methods; the rest fall
// through to an in-memory repository.
type mockBlueprintRepo struct {
	*blueprint.MemoryRepository
	createFn  func(ctx context.Context, bp *blueprint.Blueprint) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*blueprint.Blueprint, error)
	listFn    func(ctx context.Context) ([]blueprint.Blueprint, error)
}

func newMockBlueprintRepo() *mockBlueprintRepo {
	return &mockBlueprintRepo{MemoryRepository: blueprint.NewMemoryRepository()}
}

func (m *mockBlueprintRepo) Create(ctx context.Context, bp *blueprint.Blueprint) error {
	if m.createFn != nil {
		return m.createFn(ctx, bp)
	}
	return m.MemoryRepository.Create(ctx, bp)
}

func (m *mockBlueprintRepo) GetByID(ctx context.Context, id uuid.UUID) (*blueprint.Blueprint, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return m.MemoryRepository.GetByID(ctx, id)
}

func (m *mockBlueprintRepo) List(ctx context.Context) ([]blueprint.Blueprint, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return m.MemoryRepository.List(ctx)
}

// mockContractRepo overrides selected Repository methods; the rest fall
// through to an in-memory repository.
type mockContractRepo struct {
	*contract.MemoryRepository
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*contract.Contract, error)
	listFn         func(ctx context.Context, filter contract.ListFilter) ([]contract.Contract, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, version int, status lifecycle.Status) (*contract.Contract, error)
}

func newMockContractRepo() *mockContractRepo {
	return &mockContractRepo{MemoryRepository: contract.NewMemoryRepository()}
}

func (m *mockContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return m.MemoryRepository.GetByID(ctx, id)
}

func (m *mockContractRepo) List(ctx context.Context, filter contract.ListFilter) ([]contract.Contract, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return m.MemoryRepository.List(ctx, filter)
}

func (m *mockContractRepo) UpdateStatus(ctx context.Context, id uuid.UUID, version int, status lifecycle.Status) (*contract.Contract, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, version, status)
	}
	return m.MemoryRepository.UpdateStatus(ctx, id, version, status)
}
