package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow-io/stockflow/internal/platform/db"
	"github.com/stockflow-io/stockflow/internal/shared"
)

// RepositoryPort abstracts order persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*Order, error)
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]Order, error)
}

// TxRepository exposes transactional order operations.
type TxRepository interface {
	NextOrderNumber(ctx context.Context, orgID uuid.UUID, orderType OrderType, day time.Time) (string, error)
	InsertOrder(ctx context.Context, o *Order) error
	ReplaceItems(ctx context.Context, o *Order) error
	UpdateStatus(ctx context.Context, o *Order) error
	UpdatePayment(ctx context.Context, o *Order, method, reference string) error
	AppendStatusHistory(ctx context.Context, orderID uuid.UUID, change StatusChange) error
}

// ListFilter narrows order listings.
type ListFilter struct {
	Type   *OrderType
	Status *Status
	Limit  int
	Offset int
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const orderColumns = `id, org_id, order_number, type, supplier_id, customer, discount_pct,
	shipping_cost, subtotal, discount, tax, shipping, total, status, payment_status,
	paid_amount, paid_at, stock_processed, completed_at, cancelled_at, created_by,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var customer []byte
	err := row.Scan(&o.ID, &o.OrgID, &o.OrderNumber, &o.Type, &o.SupplierID, &customer, &o.DiscountPct,
		&o.ShippingCost, &o.Totals.Subtotal, &o.Totals.Discount, &o.Totals.Tax, &o.Totals.Shipping,
		&o.Totals.Total, &o.Status, &o.PaymentStatus, &o.PaidAmount, &o.PaidAt, &o.StockProcessed,
		&o.CompletedAt, &o.CancelledAt, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if len(customer) > 0 {
		var snapshot CustomerSnapshot
		if err := json.Unmarshal(customer, &snapshot); err != nil {
			return Order{}, fmt.Errorf("decode customer snapshot: %w", err)
		}
		o.Customer = &snapshot
	}
	return o, nil
}

// Get returns one order with items and status history.
func (r *Repository) Get(ctx context.Context, orgID, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "order", ID: id.String()}
		}
		return nil, err
	}

	if o.Items, err = r.loadItems(ctx, id); err != nil {
		return nil, err
	}
	if o.StatusHistory, err = r.loadHistory(ctx, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) loadItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, name, sku, unit, quantity, unit_price, discount_pct, tax_rate_pct,
			subtotal, discount_amount, tax_amount, total, position
		 FROM order_items WHERE order_id=$1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.SKU, &item.Unit,
			&item.Quantity, &item.UnitPrice, &item.DiscountPct, &item.TaxRatePct,
			&item.Subtotal, &item.DiscountAmount, &item.TaxAmount, &item.Total, &item.Position); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) loadHistory(ctx context.Context, orderID uuid.UUID) ([]StatusChange, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, actor_id, at, COALESCE(notes, '')
		 FROM order_status_history WHERE order_id=$1 ORDER BY at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []StatusChange
	for rows.Next() {
		var change StatusChange
		if err := rows.Scan(&change.Status, &change.ActorID, &change.At, &change.Notes); err != nil {
			return nil, err
		}
		history = append(history, change)
	}
	return history, rows.Err()
}

// List returns orders for an organization, newest first, without items.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE org_id=$1`
	args := []any{orgID}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND type=$%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// MarkCompleted durably commits the completed status, the stock-processed
// marker and the history entry in one transaction. The update is a
// compare-and-set on the marker so that of two concurrent completions only
// one wins; a false return means the order was already processed and the
// caller must not apply stock effects. Stock mutations happen only after
// this commit succeeds.
func (r *Repository) MarkCompleted(ctx context.Context, o *Order, change StatusChange) (bool, error) {
	committed := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE orders SET status=$1, stock_processed=TRUE, completed_at=$2, updated_at=$3
			 WHERE id=$4 AND stock_processed=FALSE AND status=$5`,
			o.Status, o.CompletedAt, o.UpdatedAt, o.ID, StatusProcessing)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		committed = true
		_, err = tx.Exec(ctx,
			`INSERT INTO order_status_history (order_id, status, actor_id, at, notes)
			 VALUES ($1,$2,$3,$4,$5)`,
			o.ID, change.Status, change.ActorID, change.At, change.Notes)
		return err
	})
	if err != nil {
		return false, err
	}
	return committed, nil
}

type txRepo struct {
	tx pgx.Tx
}

// NextOrderNumber atomically increments the per (org, type, day) counter and
// formats the document number, e.g. SO-20260901-0042.
func (t *txRepo) NextOrderNumber(ctx context.Context, orgID uuid.UUID, orderType OrderType, day time.Time) (string, error) {
	var seq int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO order_counters (org_id, order_type, day, seq) VALUES ($1,$2,$3,1)
		 ON CONFLICT (org_id, order_type, day) DO UPDATE SET seq = order_counters.seq + 1
		 RETURNING seq`, orgID, orderType, day.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", orderType.NumberPrefix(), day.Format("20060102"), seq), nil
}

func (t *txRepo) InsertOrder(ctx context.Context, o *Order) error {
	customer, err := encodeCustomer(o.Customer)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO orders (id, org_id, order_number, type, supplier_id, customer, discount_pct,
			shipping_cost, subtotal, discount, tax, shipping, total, status, payment_status,
			paid_amount, stock_processed, created_by, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		o.ID, o.OrgID, o.OrderNumber, o.Type, o.SupplierID, customer, o.DiscountPct,
		o.ShippingCost, o.Totals.Subtotal, o.Totals.Discount, o.Totals.Tax, o.Totals.Shipping,
		o.Totals.Total, o.Status, o.PaymentStatus, o.PaidAmount, o.StockProcessed,
		o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return &shared.ConcurrencyConflictError{Entity: "order number", ID: o.OrderNumber}
		}
		return err
	}
	return t.insertItems(ctx, o)
}

func (t *txRepo) insertItems(ctx context.Context, o *Order) error {
	for _, item := range o.Items {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, name, sku, unit, quantity, unit_price,
				discount_pct, tax_rate_pct, subtotal, discount_amount, tax_amount, total, position)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			item.ID, o.ID, item.ProductID, item.Name, item.SKU, item.Unit, item.Quantity, item.UnitPrice,
			item.DiscountPct, item.TaxRatePct, item.Subtotal, item.DiscountAmount, item.TaxAmount,
			item.Total, item.Position)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) ReplaceItems(ctx context.Context, o *Order) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return err
	}
	if err := t.insertItems(ctx, o); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE orders SET discount_pct=$1, shipping_cost=$2, subtotal=$3, discount=$4, tax=$5,
			shipping=$6, total=$7, payment_status=$8, updated_at=$9
		 WHERE id=$10`,
		o.DiscountPct, o.ShippingCost, o.Totals.Subtotal, o.Totals.Discount, o.Totals.Tax,
		o.Totals.Shipping, o.Totals.Total, o.PaymentStatus, o.UpdatedAt, o.ID)
	return err
}

func (t *txRepo) UpdateStatus(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE orders SET status=$1, stock_processed=$2, completed_at=$3, cancelled_at=$4, updated_at=$5
		 WHERE id=$6`,
		o.Status, o.StockProcessed, o.CompletedAt, o.CancelledAt, o.UpdatedAt, o.ID)
	return err
}

func (t *txRepo) UpdatePayment(ctx context.Context, o *Order, method, reference string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE orders SET paid_amount=$1, paid_at=$2, payment_status=$3, payment_method=$4,
			payment_ref=$5, updated_at=$6
		 WHERE id=$7`,
		o.PaidAmount, o.PaidAt, o.PaymentStatus, method, reference, o.UpdatedAt, o.ID)
	return err
}

func (t *txRepo) AppendStatusHistory(ctx context.Context, orderID uuid.UUID, change StatusChange) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO order_status_history (order_id, status, actor_id, at, notes)
		 VALUES ($1,$2,$3,$4,$5)`,
		orderID, change.Status, change.ActorID, change.At, change.Notes)
	return err
}

func encodeCustomer(c *CustomerSnapshot) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode customer snapshot: %w", err)
	}
	return data, nil
}
