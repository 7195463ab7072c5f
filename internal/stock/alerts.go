package stock

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stockflow-io/stockflow/internal/alerts"
)

var printer = message.NewPrinter(language.English)

// ThresholdCandidates inspects a record before and after a mutation and
// returns alert candidates for newly crossed thresholds. The ledger never
// dispatches alerts itself; callers hand candidates to the emitter.
func ThresholdCandidates(prev, cur Record) []alerts.Candidate {
	var out []alerts.Candidate
	actionURL := fmt.Sprintf("/stock/records/%s", cur.ID)

	if cur.Quantity == 0 && prev.Quantity > 0 {
		out = append(out, alerts.Candidate{
			OrgID:         cur.OrgID,
			Type:          alerts.TypeOutOfStock,
			Severity:      alerts.SeverityCritical,
			Title:         "Out of stock",
			Message:       printer.Sprintf("Product %s is out of stock at %s", cur.ProductID, cur.Location),
			RelatedEntity: "stock_record",
			RelatedID:     cur.ID,
			ActionURL:     actionURL,
		})
	}

	if cur.MinThreshold > 0 && cur.Quantity <= cur.MinThreshold && prev.Quantity > prev.MinThreshold {
		out = append(out, alerts.Candidate{
			OrgID:         cur.OrgID,
			Type:          alerts.TypeLowStock,
			Severity:      alerts.SeverityWarning,
			Title:         "Low stock",
			Message:       printer.Sprintf("Product %s at %s fell to %v units (minimum %v)", cur.ProductID, cur.Location, cur.Quantity, cur.MinThreshold),
			RelatedEntity: "stock_record",
			RelatedID:     cur.ID,
			ActionURL:     actionURL,
		})
	}

	if cur.MaxThreshold > 0 && cur.Quantity >= cur.MaxThreshold && prev.Quantity < prev.MaxThreshold {
		out = append(out, alerts.Candidate{
			OrgID:         cur.OrgID,
			Type:          alerts.TypeOverstock,
			Severity:      alerts.SeverityInfo,
			Title:         "Overstock",
			Message:       printer.Sprintf("Product %s at %s reached %v units (maximum %v)", cur.ProductID, cur.Location, cur.Quantity, cur.MaxThreshold),
			RelatedEntity: "stock_record",
			RelatedID:     cur.ID,
			ActionURL:     actionURL,
		})
	}

	if cur.NeedsReorder() && !prev.NeedsReorder() {
		out = append(out, alerts.Candidate{
			OrgID:         cur.OrgID,
			Type:          alerts.TypeReorder,
			Severity:      alerts.SeverityInfo,
			Title:         "Reorder suggested",
			Message:       printer.Sprintf("Available stock for product %s at %s is at or below the reorder point (%v)", cur.ProductID, cur.Location, cur.ReorderPoint),
			RelatedEntity: "stock_record",
			RelatedID:     cur.ID,
			ActionURL:     actionURL,
		})
	}

	return out
}
