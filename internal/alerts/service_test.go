package alerts

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow-io/stockflow/internal/shared"
)

type mockStore struct {
	alerts map[uuid.UUID]Alert
}

func newMockStore() *mockStore {
	return &mockStore{alerts: make(map[uuid.UUID]Alert)}
}

func (m *mockStore) HasRecentUnresolved(ctx context.Context, orgID uuid.UUID, alertType, relatedEntity string, relatedID uuid.UUID, cutoff time.Time) (bool, error) {
	for _, a := range m.alerts {
		if a.OrgID == orgID && a.Type == alertType && a.RelatedEntity == relatedEntity &&
			a.RelatedID == relatedID && a.ReadAt == nil && a.DismissedAt == nil &&
			a.CreatedAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) Insert(ctx context.Context, a Alert) error {
	m.alerts[a.ID] = a
	return nil
}

func (m *mockStore) Get(ctx context.Context, orgID, id uuid.UUID) (Alert, error) {
	a, ok := m.alerts[id]
	if !ok || a.OrgID != orgID {
		return Alert{}, &shared.NotFoundError{Entity: "alert", ID: id.String()}
	}
	return a, nil
}

func (m *mockStore) List(ctx context.Context, orgID uuid.UUID, unresolvedOnly bool) ([]Alert, error) {
	var out []Alert
	for _, a := range m.alerts {
		if a.OrgID != orgID {
			continue
		}
		if unresolvedOnly && (a.ReadAt != nil || a.DismissedAt != nil) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockStore) MarkRead(ctx context.Context, orgID, id uuid.UUID) error {
	a, ok := m.alerts[id]
	if !ok || a.OrgID != orgID {
		return &shared.NotFoundError{Entity: "alert", ID: id.String()}
	}
	now := time.Now().UTC()
	a.ReadAt = &now
	m.alerts[id] = a
	return nil
}

func (m *mockStore) Dismiss(ctx context.Context, orgID, id uuid.UUID) error {
	a, ok := m.alerts[id]
	if !ok || a.OrgID != orgID {
		return &shared.NotFoundError{Entity: "alert", ID: id.String()}
	}
	now := time.Now().UTC()
	a.DismissedAt = &now
	m.alerts[id] = a
	return nil
}

type mockDispatcher struct {
	enqueued []uuid.UUID
}

func (m *mockDispatcher) EnqueueAlertDispatch(ctx context.Context, orgID, alertID uuid.UUID) error {
	m.enqueued = append(m.enqueued, alertID)
	return nil
}

func lowStockCandidate(orgID, relatedID uuid.UUID) Candidate {
	return Candidate{
		OrgID:         orgID,
		Type:          TypeLowStock,
		Severity:      SeverityWarning,
		Title:         "Low stock",
		Message:       "Stock fell below minimum",
		RelatedEntity: "stock_record",
		RelatedID:     relatedID,
	}
}

func TestRaiseDeduplicatesWithinWindow(t *testing.T) {
	store := newMockStore()
	dispatcher := &mockDispatcher{}
	svc := NewService(store, dispatcher, slog.Default())
	orgID := uuid.New()
	relatedID := uuid.New()

	require.NoError(t, svc.Raise(context.Background(), lowStockCandidate(orgID, relatedID)))
	require.NoError(t, svc.Raise(context.Background(), lowStockCandidate(orgID, relatedID)))

	assert.Len(t, store.alerts, 1)
	assert.Len(t, dispatcher.enqueued, 1)
}

func TestRaiseAfterResolutionCreatesNewAlert(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, slog.Default())
	orgID := uuid.New()
	relatedID := uuid.New()

	require.NoError(t, svc.Raise(context.Background(), lowStockCandidate(orgID, relatedID)))
	require.Len(t, store.alerts, 1)

	for id := range store.alerts {
		require.NoError(t, svc.Dismiss(context.Background(), orgID, id))
	}

	require.NoError(t, svc.Raise(context.Background(), lowStockCandidate(orgID, relatedID)))
	assert.Len(t, store.alerts, 2)
}

func TestRaiseOutsideWindowCreatesNewAlert(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, slog.Default())
	orgID := uuid.New()
	relatedID := uuid.New()

	stale := Alert{
		ID:            uuid.New(),
		OrgID:         orgID,
		Type:          TypeLowStock,
		RelatedEntity: "stock_record",
		RelatedID:     relatedID,
		CreatedAt:     time.Now().UTC().Add(-DedupWindow - time.Hour),
	}
	store.alerts[stale.ID] = stale

	require.NoError(t, svc.Raise(context.Background(), lowStockCandidate(orgID, relatedID)))
	assert.Len(t, store.alerts, 2)
}

func TestRaiseDistinguishesTypeAndRelated(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, slog.Default())
	orgID := uuid.New()
	relatedID := uuid.New()

	require.NoError(t, svc.Raise(context.Background(), lowStockCandidate(orgID, relatedID)))

	outOfStock := lowStockCandidate(orgID, relatedID)
	outOfStock.Type = TypeOutOfStock
	require.NoError(t, svc.Raise(context.Background(), outOfStock))

	otherRecord := lowStockCandidate(orgID, uuid.New())
	require.NoError(t, svc.Raise(context.Background(), otherRecord))

	assert.Len(t, store.alerts, 3)
}

func TestMarkReadAndDismiss(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, slog.Default())
	orgID := uuid.New()

	require.NoError(t, svc.Raise(context.Background(), lowStockCandidate(orgID, uuid.New())))
	var alertID uuid.UUID
	for id := range store.alerts {
		alertID = id
	}

	require.NoError(t, svc.MarkRead(context.Background(), orgID, alertID))
	unresolved, err := svc.List(context.Background(), orgID, true)
	require.NoError(t, err)
	assert.Empty(t, unresolved)

	all, err := svc.List(context.Background(), orgID, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	var notFound *shared.NotFoundError
	err = svc.Dismiss(context.Background(), uuid.New(), alertID)
	require.ErrorAs(t, err, &notFound)
}
