package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store abstracts persistence for the service.
type Store interface {
	HasRecentUnresolved(ctx context.Context, orgID uuid.UUID, alertType, relatedEntity string, relatedID uuid.UUID, cutoff time.Time) (bool, error)
	Insert(ctx context.Context, a Alert) error
	Get(ctx context.Context, orgID, id uuid.UUID) (Alert, error)
	List(ctx context.Context, orgID uuid.UUID, unresolvedOnly bool) ([]Alert, error)
	MarkRead(ctx context.Context, orgID, id uuid.UUID) error
	Dismiss(ctx context.Context, orgID, id uuid.UUID) error
}

// Dispatcher enqueues delivery of a persisted alert. Delivery mechanics live
// behind the worker boundary.
type Dispatcher interface {
	EnqueueAlertDispatch(ctx context.Context, orgID, alertID uuid.UUID) error
}

// Service deduplicates candidates and persists alerts.
type Service struct {
	store      Store
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewService builds Service. dispatcher may be nil in tests.
func NewService(store Store, dispatcher Dispatcher, logger *slog.Logger) *Service {
	return &Service{store: store, dispatcher: dispatcher, logger: logger}
}

// Raise persists a candidate unless an equivalent unresolved alert for the
// same (org, type, related entity) exists within the dedup window. Safe to
// call every time a threshold is crossed.
func (s *Service) Raise(ctx context.Context, candidate Candidate) error {
	cutoff := time.Now().UTC().Add(-DedupWindow)
	exists, err := s.store.HasRecentUnresolved(ctx, candidate.OrgID, candidate.Type,
		candidate.RelatedEntity, candidate.RelatedID, cutoff)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	alert := Alert{
		ID:            uuid.New(),
		OrgID:         candidate.OrgID,
		Type:          candidate.Type,
		Severity:      candidate.Severity,
		Title:         candidate.Title,
		Message:       candidate.Message,
		RelatedEntity: candidate.RelatedEntity,
		RelatedID:     candidate.RelatedID,
		ActionURL:     candidate.ActionURL,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, alert); err != nil {
		return err
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueAlertDispatch(ctx, alert.OrgID, alert.ID); err != nil {
			// The alert is already persisted; delivery is best effort.
			s.logger.Warn("enqueue alert dispatch failed",
				slog.String("alert_id", alert.ID.String()), slog.Any("error", err))
		}
	}
	return nil
}

// Get returns one alert.
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (Alert, error) {
	return s.store.Get(ctx, orgID, id)
}

// List returns alerts for an organization.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, unresolvedOnly bool) ([]Alert, error) {
	return s.store.List(ctx, orgID, unresolvedOnly)
}

// MarkRead marks an alert as read.
func (s *Service) MarkRead(ctx context.Context, orgID, id uuid.UUID) error {
	return s.store.MarkRead(ctx, orgID, id)
}

// Dismiss dismisses an alert.
func (s *Service) Dismiss(ctx context.Context, orgID, id uuid.UUID) error {
	return s.store.Dismiss(ctx, orgID, id)
}

var _ Emitter = (*Service)(nil)
