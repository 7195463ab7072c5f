package stock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow-io/stockflow/internal/alerts"
)

func thresholdRecord(qty int64) Record {
	return Record{
		ID:           uuid.New(),
		OrgID:        uuid.New(),
		ProductID:    uuid.New(),
		Location:     "main",
		Quantity:     qty,
		MinThreshold: 10,
		MaxThreshold: 100,
		ReorderPoint: 15,
	}
}

func withQuantity(r Record, qty int64) Record {
	r.Quantity = qty
	return r
}

func candidateTypes(candidates []alerts.Candidate) []string {
	types := make([]string, 0, len(candidates))
	for _, c := range candidates {
		types = append(types, c.Type)
	}
	return types
}

func TestThresholdCandidatesOutOfStock(t *testing.T) {
	prev := thresholdRecord(3)
	cur := withQuantity(prev, 0)

	// Low stock was already crossed at quantity 3, so only the zero crossing
	// produces a new candidate.
	candidates := ThresholdCandidates(prev, cur)
	require.Len(t, candidates, 1)
	assert.Equal(t, alerts.TypeOutOfStock, candidates[0].Type)
	assert.Equal(t, alerts.SeverityCritical, candidates[0].Severity)
}

func TestThresholdCandidatesLowStockCrossing(t *testing.T) {
	prev := thresholdRecord(20)
	cur := withQuantity(prev, 8)

	candidates := ThresholdCandidates(prev, cur)
	got := candidateTypes(candidates)
	assert.Contains(t, got, alerts.TypeLowStock)
	assert.Contains(t, got, alerts.TypeReorder)
	assert.NotContains(t, got, alerts.TypeOutOfStock)

	for _, c := range candidates {
		assert.Equal(t, cur.OrgID, c.OrgID)
		assert.Equal(t, "stock_record", c.RelatedEntity)
		assert.Equal(t, cur.ID, c.RelatedID)
	}
}

func TestThresholdCandidatesNoRepeatWhileBelow(t *testing.T) {
	// Already below min; dropping further must not re-raise low stock.
	prev := thresholdRecord(8)
	cur := withQuantity(prev, 5)

	got := candidateTypes(ThresholdCandidates(prev, cur))
	assert.NotContains(t, got, alerts.TypeLowStock)
	assert.NotContains(t, got, alerts.TypeReorder)
}

func TestThresholdCandidatesOverstock(t *testing.T) {
	prev := thresholdRecord(90)
	cur := withQuantity(prev, 120)

	candidates := ThresholdCandidates(prev, cur)
	require.Len(t, candidates, 1)
	assert.Equal(t, alerts.TypeOverstock, candidates[0].Type)
	assert.Equal(t, alerts.SeverityInfo, candidates[0].Severity)
}

func TestThresholdCandidatesUnconfiguredThresholds(t *testing.T) {
	prev := Record{ID: uuid.New(), Quantity: 50}
	cur := withQuantity(prev, 1)

	assert.Empty(t, ThresholdCandidates(prev, cur))
}

func TestNeedsReorderRespectsReservations(t *testing.T) {
	r := Record{Quantity: 20, ReservedQuantity: 10, ReorderPoint: 15}
	assert.True(t, r.NeedsReorder())
	assert.Equal(t, int64(10), r.AvailableQuantity())

	r.ReservedQuantity = 0
	assert.False(t, r.NeedsReorder())

	r.ReservedQuantity = 25
	assert.Equal(t, int64(0), r.AvailableQuantity())
}
