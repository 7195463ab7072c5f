package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow-io/stockflow/internal/alerts"
	"github.com/stockflow-io/stockflow/internal/orders"
	"github.com/stockflow-io/stockflow/internal/shared"
	"github.com/stockflow-io/stockflow/internal/stock"
	"github.com/stockflow-io/stockflow/internal/transactions"
)

type fakeLedger struct {
	records map[string]stock.Record

	conflictsLeft int
	applied       []stock.MovementInput
	candidates    []alerts.Candidate
}

func ledgerKey(orgID, productID uuid.UUID, location string) string {
	return fmt.Sprintf("%s:%s:%s", orgID, productID, location)
}

func (f *fakeLedger) Get(ctx context.Context, orgID, productID uuid.UUID, location string) (stock.Record, error) {
	r, ok := f.records[ledgerKey(orgID, productID, location)]
	if !ok {
		return stock.Record{}, &shared.NotFoundError{Entity: "stock record", ID: productID.String()}
	}
	return r, nil
}

func (f *fakeLedger) ApplyMovement(ctx context.Context, input stock.MovementInput) (stock.Record, []alerts.Candidate, error) {
	key := ledgerKey(input.OrgID, input.ProductID, input.Location)
	r, ok := f.records[key]
	if !ok {
		return stock.Record{}, nil, &shared.NotFoundError{Entity: "stock record", ID: input.ProductID.String()}
	}
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return stock.Record{}, nil, &shared.ConcurrencyConflictError{Entity: "stock record", ID: r.ID.String()}
	}
	if r.Quantity+input.Delta < 0 {
		return stock.Record{}, nil, &shared.InsufficientStockError{
			ProductID: input.ProductID,
			Location:  input.Location,
			Requested: -input.Delta,
			Available: r.Quantity,
		}
	}
	r.Quantity += input.Delta
	r.Version++
	f.records[key] = r
	f.applied = append(f.applied, input)
	return r, f.candidates, nil
}

type fakeOrderStore struct {
	completed []uuid.UUID
	err       error
}

// MarkCompleted mirrors the repository's compare-and-set: the second commit
// for the same order loses and reports false.
func (f *fakeOrderStore) MarkCompleted(ctx context.Context, o *orders.Order, change orders.StatusChange) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.completed {
		if id == o.ID {
			return false, nil
		}
	}
	f.completed = append(f.completed, o.ID)
	return true, nil
}

type fakeRecorder struct {
	records []transactions.Record
	err     error
}

func (f *fakeRecorder) Append(ctx context.Context, record transactions.Record) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

type fakeEmitter struct {
	raised []alerts.Candidate
}

func (f *fakeEmitter) Raise(ctx context.Context, candidate alerts.Candidate) error {
	f.raised = append(f.raised, candidate)
	return nil
}

type fixture struct {
	coordinator *Coordinator
	ledger      *fakeLedger
	store       *fakeOrderStore
	recorder    *fakeRecorder
	emitter     *fakeEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := &fakeLedger{records: make(map[string]stock.Record)}
	store := &fakeOrderStore{}
	recorder := &fakeRecorder{}
	emitter := &fakeEmitter{}
	return &fixture{
		coordinator: NewCoordinator(ledger, store, recorder, emitter, "main", slog.Default()),
		ledger:      ledger,
		store:       store,
		recorder:    recorder,
		emitter:     emitter,
	}
}

func (f *fixture) trackProduct(orgID uuid.UUID, qty int64) uuid.UUID {
	productID := uuid.New()
	f.ledger.records[ledgerKey(orgID, productID, "main")] = stock.Record{
		ID:        uuid.New(),
		OrgID:     orgID,
		ProductID: productID,
		Location:  "main",
		Quantity:  qty,
		Version:   1,
	}
	return productID
}

func saleOrder(orgID, productID uuid.UUID, qty int64) *orders.Order {
	return &orders.Order{
		ID:          uuid.New(),
		OrgID:       orgID,
		OrderNumber: "SO-20260901-0001",
		Type:        orders.TypeSale,
		Status:      orders.StatusProcessing,
		Items: []orders.OrderItem{{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: decimal.NewFromInt(100),
		}},
	}
}

func TestCompleteSaleInsufficientStockAborts(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	productID := f.trackProduct(orgID, 5)
	order := saleOrder(orgID, productID, 10)

	err := f.coordinator.Complete(context.Background(), order, shared.Actor{OrgID: orgID, UserID: uuid.New()}, "")

	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(10), stockErr.Requested)
	assert.Equal(t, int64(5), stockErr.Available)

	// Nothing committed, nothing mutated.
	assert.Empty(t, f.store.completed)
	assert.Empty(t, f.ledger.applied)
	assert.Empty(t, f.recorder.records)
	assert.Equal(t, int64(5), f.ledger.records[ledgerKey(orgID, productID, "main")].Quantity)
}

func TestCompletePurchaseAppliesStock(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	productID := f.trackProduct(orgID, 5)
	actor := shared.Actor{OrgID: orgID, UserID: uuid.New()}

	order := saleOrder(orgID, productID, 20)
	order.Type = orders.TypePurchase
	order.OrderNumber = "PO-20260901-0001"

	err := f.coordinator.Complete(context.Background(), order, actor, "received")
	require.NoError(t, err)

	assert.Equal(t, orders.StatusCompleted, order.Status)
	assert.True(t, order.StockProcessed)
	require.NotNil(t, order.CompletedAt)
	require.Len(t, f.store.completed, 1)

	assert.Equal(t, int64(25), f.ledger.records[ledgerKey(orgID, productID, "main")].Quantity)

	require.Len(t, f.recorder.records, 1)
	rec := f.recorder.records[0]
	assert.Equal(t, "purchase", rec.Type)
	assert.Equal(t, int64(20), rec.Delta)
	assert.Equal(t, "PO-20260901-0001", rec.Reference)
	assert.Equal(t, actor.UserID, rec.ActorID)
	assert.Equal(t, "2000.00", rec.Value.StringFixed(2))
}

func TestCompleteSaleAppliesNegativeDelta(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	productID := f.trackProduct(orgID, 30)
	order := saleOrder(orgID, productID, 10)

	err := f.coordinator.Complete(context.Background(), order, shared.Actor{OrgID: orgID, UserID: uuid.New()}, "")
	require.NoError(t, err)

	assert.Equal(t, int64(20), f.ledger.records[ledgerKey(orgID, productID, "main")].Quantity)
	require.Len(t, f.recorder.records, 1)
	assert.Equal(t, int64(-10), f.recorder.records[0].Delta)
	assert.Equal(t, "sale", f.recorder.records[0].Type)
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	productID := f.trackProduct(orgID, 30)
	order := saleOrder(orgID, productID, 10)
	order.StockProcessed = true

	err := f.coordinator.Complete(context.Background(), order, shared.Actor{OrgID: orgID, UserID: uuid.New()}, "")
	require.NoError(t, err)

	assert.Empty(t, f.store.completed)
	assert.Empty(t, f.ledger.applied)
	assert.Empty(t, f.recorder.records)
	assert.Equal(t, int64(30), f.ledger.records[ledgerKey(orgID, productID, "main")].Quantity)
}

func TestCompleteSkipsUntrackedProducts(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	tracked := f.trackProduct(orgID, 30)
	untracked := uuid.New()

	order := saleOrder(orgID, tracked, 10)
	order.Items = append(order.Items, orders.OrderItem{
		ID:        uuid.New(),
		ProductID: untracked,
		Quantity:  99,
		UnitPrice: decimal.NewFromInt(5),
	})

	err := f.coordinator.Complete(context.Background(), order, shared.Actor{OrgID: orgID, UserID: uuid.New()}, "")
	require.NoError(t, err)

	// Exactly one mutation and one ledger entry, for the tracked product.
	require.Len(t, f.ledger.applied, 1)
	assert.Equal(t, tracked, f.ledger.applied[0].ProductID)
	require.Len(t, f.recorder.records, 1)
	assert.Equal(t, tracked, f.recorder.records[0].ProductID)
}

func TestCompleteRetriesConflictOnce(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	productID := f.trackProduct(orgID, 30)
	order := saleOrder(orgID, productID, 10)
	f.ledger.conflictsLeft = 1

	err := f.coordinator.Complete(context.Background(), order, shared.Actor{OrgID: orgID, UserID: uuid.New()}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(20), f.ledger.records[ledgerKey(orgID, productID, "main")].Quantity)
}

func TestCompleteSecondConflictSurfaces(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	productID := f.trackProduct(orgID, 30)
	order := saleOrder(orgID, productID, 10)
	f.ledger.conflictsLeft = 2

	err := f.coordinator.Complete(context.Background(), order, shared.Actor{OrgID: orgID, UserID: uuid.New()}, "")
	var conflict *shared.ConcurrencyConflictError
	require.ErrorAs(t, err, &conflict)
	// The completion itself is already committed by then.
	require.Len(t, f.store.completed, 1)
}

func TestCompleteRecorderFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	productID := f.trackProduct(orgID, 30)
	order := saleOrder(orgID, productID, 10)
	f.recorder.err = errors.New("ledger unavailable")

	err := f.coordinator.Complete(context.Background(), order, shared.Actor{OrgID: orgID, UserID: uuid.New()}, "")
	require.Error(t, err)

	// The completion and the stock mutation are already durable; only the
	// audit record is missing and the caller must hear about it.
	require.Len(t, f.store.completed, 1)
	require.Len(t, f.ledger.applied, 1)
	assert.Empty(t, f.recorder.records)
}

func TestCompleteDuplicateCallersApplyOnce(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	productID := f.trackProduct(orgID, 30)
	actor := shared.Actor{OrgID: orgID, UserID: uuid.New()}

	first := saleOrder(orgID, productID, 10)
	// Second caller loaded the same order independently, before the first
	// committed: same id, marker still unset.
	second := *first
	second.Status = orders.StatusProcessing
	second.StockProcessed = false

	require.NoError(t, f.coordinator.Complete(context.Background(), first, actor, ""))
	require.NoError(t, f.coordinator.Complete(context.Background(), &second, actor, ""))

	require.Len(t, f.store.completed, 1)
	require.Len(t, f.ledger.applied, 1)
	require.Len(t, f.recorder.records, 1)
	assert.Equal(t, int64(20), f.ledger.records[ledgerKey(orgID, productID, "main")].Quantity)
}

func TestCompleteDispatchesAlertCandidates(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	productID := f.trackProduct(orgID, 30)
	order := saleOrder(orgID, productID, 10)
	f.ledger.candidates = []alerts.Candidate{{
		OrgID: orgID, Type: alerts.TypeLowStock, Severity: alerts.SeverityWarning,
	}}

	err := f.coordinator.Complete(context.Background(), order, shared.Actor{OrgID: orgID, UserID: uuid.New()}, "")
	require.NoError(t, err)
	require.Len(t, f.emitter.raised, 1)
	assert.Equal(t, alerts.TypeLowStock, f.emitter.raised[0].Type)
}
