package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow-io/stockflow/internal/shared"
)

func newTestRouter(t *testing.T) (chi.Router, *mockDirectory, shared.Actor) {
	t.Helper()
	svc, _, directory, _ := newTestService(t)
	handler := NewHandler(slog.Default(), svc)
	r := chi.NewRouter()
	r.Route("/orders", handler.MountRoutes)
	return r, directory, testActor()
}

func doRequest(r chi.Router, actor *shared.Actor, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(shared.ContextWithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrderEndpoint(t *testing.T) {
	r, directory, actor := newTestRouter(t)
	productID := addProduct(directory, "40", "100")

	rec := doRequest(r, &actor, http.MethodPost, "/orders", map[string]any{
		"type":     "sale",
		"customer": map[string]any{"name": "Acme"},
		"items": []map[string]any{
			{"product_id": productID, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, StatusDraft, created.Status)
	assert.Equal(t, "200", created.Totals.Total.String())
}

func TestCreateOrderEndpointRejectsBadInput(t *testing.T) {
	r, _, actor := newTestRouter(t)

	rec := doRequest(r, &actor, http.MethodPost, "/orders", map[string]any{
		"type":  "sale",
		"items": []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(r, &actor, http.MethodPost, "/orders", map[string]any{
		"type": "invoice",
		"items": []map[string]any{
			{"product_id": uuid.NewString(), "quantity": 1},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderEndpointsRequireActor(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := doRequest(r, nil, http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusEndpointRejectsIllegalTransition(t *testing.T) {
	r, directory, actor := newTestRouter(t)
	productID := addProduct(directory, "40", "100")

	rec := doRequest(r, &actor, http.MethodPost, "/orders", map[string]any{
		"type":     "sale",
		"customer": map[string]any{"name": "Acme"},
		"items": []map[string]any{
			{"product_id": productID, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(r, &actor, http.MethodPost, fmt.Sprintf("/orders/%s/status", created.ID), map[string]any{
		"status": "completed",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
