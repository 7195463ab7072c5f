// Package fulfillment couples order completion with stock mutation. The
// coordinator is the only code path that turns a completed order into stock
// movements, transaction log entries and threshold alerts.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow-io/stockflow/internal/alerts"
	"github.com/stockflow-io/stockflow/internal/orders"
	"github.com/stockflow-io/stockflow/internal/shared"
	"github.com/stockflow-io/stockflow/internal/stock"
	"github.com/stockflow-io/stockflow/internal/transactions"
)

// StockLedger is the slice of the stock service the coordinator needs.
type StockLedger interface {
	Get(ctx context.Context, orgID, productID uuid.UUID, location string) (stock.Record, error)
	ApplyMovement(ctx context.Context, input stock.MovementInput) (stock.Record, []alerts.Candidate, error)
}

// OrderStore durably commits the completion. The commit is a compare-and-set
// on the stock-processed marker: false means another caller already processed
// the order and no stock effects may be applied.
type OrderStore interface {
	MarkCompleted(ctx context.Context, o *orders.Order, change orders.StatusChange) (bool, error)
}

// Coordinator runs the completion protocol:
//
//  1. Idempotency check on the stock-processed marker.
//  2. Fail-fast availability pre-validation for sale orders. Nothing has been
//     committed yet, so a shortage rejects the whole transition.
//  3. Durable compare-and-set commit of completed status plus marker in one
//     transaction; a lost race means another caller owns the stock effects.
//  4. Stock mutation pass, one movement per item, with a single retry on an
//     optimistic-concurrency conflict.
//  5. Transaction log append and alert dispatch per mutated record.
type Coordinator struct {
	ledger          StockLedger
	store           OrderStore
	recorder        transactions.Recorder
	emitter         alerts.Emitter
	defaultLocation string
	logger          *slog.Logger
}

// NewCoordinator builds Coordinator. Orders carry no location, so stock is
// resolved at defaultLocation.
func NewCoordinator(ledger StockLedger, store OrderStore, recorder transactions.Recorder, emitter alerts.Emitter, defaultLocation string, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		ledger:          ledger,
		store:           store,
		recorder:        recorder,
		emitter:         emitter,
		defaultLocation: defaultLocation,
		logger:          logger,
	}
}

var _ orders.Coordinator = (*Coordinator)(nil)

// Complete transitions the order to completed and applies its stock effects.
func (c *Coordinator) Complete(ctx context.Context, order *orders.Order, actor shared.Actor, notes string) error {
	if order.StockProcessed {
		c.logger.Info("order already stock processed, skipping",
			slog.String("order", order.OrderNumber))
		return nil
	}

	if order.Type == orders.TypeSale {
		if err := c.prevalidate(ctx, order); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	order.Status = orders.StatusCompleted
	order.StockProcessed = true
	order.CompletedAt = &now
	order.UpdatedAt = now

	committed, err := c.store.MarkCompleted(ctx, order, orders.StatusChange{
		Status:  orders.StatusCompleted,
		ActorID: actor.UserID,
		At:      now,
		Notes:   notes,
	})
	if err != nil {
		return fmt.Errorf("commit completion: %w", err)
	}
	if !committed {
		c.logger.Info("order completion already committed, skipping stock effects",
			slog.String("order", order.OrderNumber))
		return nil
	}

	return c.applyStockEffects(ctx, order, actor)
}

// prevalidate checks availability for every tracked item. Untracked products
// (no stock record at the default location) are skipped here and in the
// mutation pass.
func (c *Coordinator) prevalidate(ctx context.Context, order *orders.Order) error {
	for _, item := range order.Items {
		record, err := c.ledger.Get(ctx, order.OrgID, item.ProductID, c.defaultLocation)
		if err != nil {
			var notFound *shared.NotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return fmt.Errorf("prevalidate stock for %s: %w", item.ProductID, err)
		}
		if record.AvailableQuantity() < item.Quantity {
			return &shared.InsufficientStockError{
				ProductID: item.ProductID,
				Location:  c.defaultLocation,
				Requested: item.Quantity,
				Available: record.AvailableQuantity(),
			}
		}
	}
	return nil
}

func (c *Coordinator) applyStockEffects(ctx context.Context, order *orders.Order, actor shared.Actor) error {
	movementType := stock.MovementPurchase
	sign := int64(1)
	if order.Type == orders.TypeSale {
		movementType = stock.MovementSale
		sign = -1
	}

	for _, item := range order.Items {
		input := stock.MovementInput{
			OrgID:     order.OrgID,
			ProductID: item.ProductID,
			Location:  c.defaultLocation,
			Type:      movementType,
			Delta:     sign * item.Quantity,
			UnitValue: item.UnitPrice,
			Reference: order.OrderNumber,
		}

		_, candidates, err := c.applyWithRetry(ctx, input)
		if err != nil {
			var notFound *shared.NotFoundError
			if errors.As(err, &notFound) {
				c.logger.Info("no stock record for product, skipping",
					slog.String("order", order.OrderNumber),
					slog.String("product_id", item.ProductID.String()))
				continue
			}
			// The completion is already committed; surface the failure so the
			// caller can reconcile, but do not roll back the order.
			c.logger.Error("stock mutation failed after completion commit",
				slog.String("order", order.OrderNumber),
				slog.String("product_id", item.ProductID.String()),
				slog.Any("error", err))
			return fmt.Errorf("apply stock movement for %s: %w", item.ProductID, err)
		}

		if err := c.recorder.Append(ctx, transactions.Record{
			OrgID:     order.OrgID,
			ProductID: item.ProductID,
			Type:      string(movementType),
			Delta:     input.Delta,
			Value:     shared.Round2(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))),
			Reference: order.OrderNumber,
			ActorID:   actor.UserID,
		}); err != nil {
			// Stock is already mutated; the record is the audit trail for that
			// mutation, so its loss must reach the caller too.
			c.logger.Error("transaction log append failed after stock mutation",
				slog.String("order", order.OrderNumber),
				slog.String("product_id", item.ProductID.String()),
				slog.Any("error", err))
			return fmt.Errorf("append transaction record for %s: %w", item.ProductID, err)
		}

		for _, candidate := range candidates {
			if err := c.emitter.Raise(ctx, candidate); err != nil {
				c.logger.Warn("alert raise failed",
					slog.String("order", order.OrderNumber),
					slog.String("type", candidate.Type),
					slog.Any("error", err))
			}
		}
	}
	return nil
}

// applyWithRetry retries a lost optimistic write exactly once. ApplyMovement
// re-reads the record, so the retry revalidates against fresh state.
func (c *Coordinator) applyWithRetry(ctx context.Context, input stock.MovementInput) (stock.Record, []alerts.Candidate, error) {
	record, candidates, err := c.ledger.ApplyMovement(ctx, input)
	if err == nil {
		return record, candidates, nil
	}
	var conflict *shared.ConcurrencyConflictError
	if !errors.As(err, &conflict) {
		return stock.Record{}, nil, err
	}
	c.logger.Warn("stock write conflict, retrying once",
		slog.String("product_id", input.ProductID.String()),
		slog.String("location", input.Location))
	return c.ledger.ApplyMovement(ctx, input)
}
