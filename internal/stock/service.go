package stock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow-io/stockflow/internal/alerts"
	"github.com/stockflow-io/stockflow/internal/catalog"
	"github.com/stockflow-io/stockflow/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, orgID, productID uuid.UUID, location string) (Record, error)
	GetByID(ctx context.Context, orgID, id uuid.UUID) (Record, error)
	List(ctx context.Context, orgID uuid.UUID) ([]Record, error)
	ListMovements(ctx context.Context, recordID uuid.UUID, limit int) ([]Movement, error)
	Create(ctx context.Context, record Record) error
	PruneAllMovements(ctx context.Context, maxEntries int, retention time.Duration) (int64, error)
}

// TxRepository exposes the transactional operations used by ApplyMovement.
type TxRepository interface {
	UpdateRecordGuarded(ctx context.Context, record Record, expectedVersion int64) error
	InsertMovement(ctx context.Context, movement Movement) error
	PruneMovements(ctx context.Context, recordID uuid.UUID, maxEntries int, retention time.Duration) error
}

// Service owns stock records and their movement ledger.
type Service struct {
	repo      RepositoryPort
	directory catalog.Directory
	logger    *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, directory catalog.Directory, logger *slog.Logger) *Service {
	return &Service{repo: repo, directory: directory, logger: logger}
}

// CreateRecordInput describes a new stock record, typically created alongside
// the product with zero quantity.
type CreateRecordInput struct {
	OrgID        uuid.UUID
	ProductID    uuid.UUID
	Location     string
	Quantity     int64
	MinThreshold int64
	MaxThreshold int64
	ReorderPoint int64
}

// CreateRecord registers a stock record for one product at one location.
func (s *Service) CreateRecord(ctx context.Context, input CreateRecordInput) (Record, error) {
	if input.Location == "" {
		return Record{}, shared.NewValidationError("location", "required")
	}
	if input.Quantity < 0 {
		return Record{}, shared.NewValidationError("quantity", "must be >= 0")
	}

	product, err := s.directory.Lookup(ctx, input.OrgID, input.ProductID)
	if err != nil {
		return Record{}, fmt.Errorf("resolve product: %w", err)
	}

	now := time.Now().UTC()
	record := Record{
		ID:           uuid.New(),
		OrgID:        input.OrgID,
		ProductID:    input.ProductID,
		Location:     input.Location,
		Quantity:     input.Quantity,
		MinThreshold: input.MinThreshold,
		MaxThreshold: input.MaxThreshold,
		ReorderPoint: input.ReorderPoint,
		TotalValue:   shared.Round2(product.Cost.Mul(decimal.NewFromInt(input.Quantity))),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// ApplyMovement mutates one stock record and appends to its movement history.
// The write is guarded by the record version; a lost race surfaces as
// ConcurrencyConflictError and the caller decides whether to retry.
func (s *Service) ApplyMovement(ctx context.Context, input MovementInput) (Record, []alerts.Candidate, error) {
	if input.Delta == 0 {
		return Record{}, nil, shared.NewValidationError("delta", "must be non zero")
	}
	if input.Location == "" {
		return Record{}, nil, shared.NewValidationError("location", "required")
	}

	record, err := s.repo.Get(ctx, input.OrgID, input.ProductID, input.Location)
	if err != nil {
		return Record{}, nil, err
	}

	newQty := record.Quantity + input.Delta
	if newQty < 0 {
		return Record{}, nil, &shared.InsufficientStockError{
			ProductID: input.ProductID,
			Location:  input.Location,
			Requested: -input.Delta,
			Available: record.Quantity,
		}
	}

	product, err := s.directory.Lookup(ctx, input.OrgID, input.ProductID)
	if err != nil {
		return Record{}, nil, fmt.Errorf("resolve product cost: %w", err)
	}

	unitValue := input.UnitValue
	if unitValue.IsZero() {
		unitValue = product.Cost
	}
	absDelta := input.Delta
	if absDelta < 0 {
		absDelta = -absDelta
	}

	now := time.Now().UTC()
	updated := record
	updated.Quantity = newQty
	updated.TotalValue = shared.Round2(product.Cost.Mul(decimal.NewFromInt(newQty)))
	updated.LastMovementAt = &now
	updated.UpdatedAt = now

	movement := Movement{
		ID:        uuid.New(),
		RecordID:  record.ID,
		Type:      input.Type,
		Delta:     input.Delta,
		Value:     shared.Round2(unitValue.Mul(decimal.NewFromInt(absDelta))),
		Reference: input.Reference,
		At:        now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateRecordGuarded(ctx, updated, record.Version); err != nil {
			return err
		}
		if err := tx.InsertMovement(ctx, movement); err != nil {
			return err
		}
		return tx.PruneMovements(ctx, record.ID, MaxMovementEntries, MovementRetention)
	})
	if err != nil {
		return Record{}, nil, err
	}
	updated.Version = record.Version + 1

	return updated, ThresholdCandidates(record, updated), nil
}

// AdjustInput describes a manual correction.
type AdjustInput struct {
	OrgID     uuid.UUID
	ProductID uuid.UUID
	Location  string
	Delta     int64
	Reference string
}

// Adjust posts a manual adjustment movement.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (Record, []alerts.Candidate, error) {
	reference := input.Reference
	if reference == "" {
		reference = fmt.Sprintf("ADJ-%d", time.Now().UTC().UnixNano())
	}
	return s.ApplyMovement(ctx, MovementInput{
		OrgID:     input.OrgID,
		ProductID: input.ProductID,
		Location:  input.Location,
		Type:      MovementAdjustment,
		Delta:     input.Delta,
		Reference: reference,
	})
}

// TransferInput moves stock between two locations of the same organization.
type TransferInput struct {
	OrgID     uuid.UUID
	ProductID uuid.UUID
	From      string
	To        string
	Quantity  int64
	Reference string
}

// Transfer posts the outbound and inbound movements in one transaction. A
// missing destination record or a lost version race on either leg aborts the
// whole transfer with the source untouched.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (Record, Record, error) {
	if input.From == input.To {
		return Record{}, Record{}, shared.NewValidationError("to", "source and destination must differ")
	}
	if input.Quantity <= 0 {
		return Record{}, Record{}, shared.NewValidationError("quantity", "must be >= 1")
	}
	reference := input.Reference
	if reference == "" {
		reference = fmt.Sprintf("TRF-%d", time.Now().UTC().UnixNano())
	}

	from, err := s.repo.Get(ctx, input.OrgID, input.ProductID, input.From)
	if err != nil {
		return Record{}, Record{}, err
	}
	to, err := s.repo.Get(ctx, input.OrgID, input.ProductID, input.To)
	if err != nil {
		return Record{}, Record{}, fmt.Errorf("resolve destination record: %w", err)
	}
	if from.Quantity < input.Quantity {
		return Record{}, Record{}, &shared.InsufficientStockError{
			ProductID: input.ProductID,
			Location:  input.From,
			Requested: input.Quantity,
			Available: from.Quantity,
		}
	}

	product, err := s.directory.Lookup(ctx, input.OrgID, input.ProductID)
	if err != nil {
		return Record{}, Record{}, fmt.Errorf("resolve product cost: %w", err)
	}
	value := shared.Round2(product.Cost.Mul(decimal.NewFromInt(input.Quantity)))

	now := time.Now().UTC()
	updatedFrom := from
	updatedFrom.Quantity -= input.Quantity
	updatedFrom.TotalValue = shared.Round2(product.Cost.Mul(decimal.NewFromInt(updatedFrom.Quantity)))
	updatedFrom.LastMovementAt = &now
	updatedFrom.UpdatedAt = now

	updatedTo := to
	updatedTo.Quantity += input.Quantity
	updatedTo.TotalValue = shared.Round2(product.Cost.Mul(decimal.NewFromInt(updatedTo.Quantity)))
	updatedTo.LastMovementAt = &now
	updatedTo.UpdatedAt = now

	outMove := Movement{
		ID: uuid.New(), RecordID: from.ID, Type: MovementTransferOut,
		Delta: -input.Quantity, Value: value, Reference: reference, At: now,
	}
	inMove := Movement{
		ID: uuid.New(), RecordID: to.ID, Type: MovementTransferIn,
		Delta: input.Quantity, Value: value, Reference: reference, At: now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateRecordGuarded(ctx, updatedFrom, from.Version); err != nil {
			return err
		}
		if err := tx.InsertMovement(ctx, outMove); err != nil {
			return err
		}
		if err := tx.PruneMovements(ctx, from.ID, MaxMovementEntries, MovementRetention); err != nil {
			return err
		}
		if err := tx.UpdateRecordGuarded(ctx, updatedTo, to.Version); err != nil {
			return err
		}
		if err := tx.InsertMovement(ctx, inMove); err != nil {
			return err
		}
		return tx.PruneMovements(ctx, to.ID, MaxMovementEntries, MovementRetention)
	})
	if err != nil {
		return Record{}, Record{}, err
	}
	updatedFrom.Version = from.Version + 1
	updatedTo.Version = to.Version + 1
	return updatedFrom, updatedTo, nil
}

// Get returns one stock record by organization, product and location.
func (s *Service) Get(ctx context.Context, orgID, productID uuid.UUID, location string) (Record, error) {
	return s.repo.Get(ctx, orgID, productID, location)
}

// GetByID returns one stock record by id, scoped to the organization.
func (s *Service) GetByID(ctx context.Context, orgID, id uuid.UUID) (Record, error) {
	return s.repo.GetByID(ctx, orgID, id)
}

// List returns all stock records for an organization.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]Record, error) {
	return s.repo.List(ctx, orgID)
}

// Movements returns the bounded movement history, newest first.
func (s *Service) Movements(ctx context.Context, orgID, recordID uuid.UUID, limit int) ([]Movement, error) {
	if _, err := s.repo.GetByID(ctx, orgID, recordID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxMovementEntries {
		limit = MaxMovementEntries
	}
	return s.repo.ListMovements(ctx, recordID, limit)
}

// PruneMovements enforces the retention bounds across all records. Invoked by
// the nightly worker job; pruning also happens inline on every insert.
func (s *Service) PruneMovements(ctx context.Context) (int64, error) {
	pruned, err := s.repo.PruneAllMovements(ctx, MaxMovementEntries, MovementRetention)
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		s.logger.Info("pruned stock movements", slog.Int64("count", pruned))
	}
	return pruned, nil
}
