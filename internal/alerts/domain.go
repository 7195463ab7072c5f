package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert types raised by the stock ledger.
const (
	TypeOutOfStock = "out_of_stock"
	TypeLowStock   = "low_stock"
	TypeOverstock  = "overstock"
	TypeReorder    = "reorder_suggested"
)

// Candidate is a proposed alert. It only becomes a persisted alert if no
// equivalent unresolved alert exists for the same related entity within the
// dedup window.
type Candidate struct {
	OrgID         uuid.UUID
	Type          string
	Severity      Severity
	Title         string
	Message       string
	RelatedEntity string
	RelatedID     uuid.UUID
	ActionURL     string
}

// Alert is a persisted, deduplicated notification.
type Alert struct {
	ID            uuid.UUID  `json:"id"`
	OrgID         uuid.UUID  `json:"org_id"`
	Type          string     `json:"type"`
	Severity      Severity   `json:"severity"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	RelatedEntity string     `json:"related_entity"`
	RelatedID     uuid.UUID  `json:"related_id"`
	ActionURL     string     `json:"action_url,omitempty"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	DismissedAt   *time.Time `json:"dismissed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Emitter accepts alert candidates. Raise is idempotent from the caller's
// perspective: submitting the same candidate repeatedly is safe.
type Emitter interface {
	Raise(ctx context.Context, candidate Candidate) error
}

// DedupWindow is how long an unresolved alert suppresses equivalent candidates.
const DedupWindow = 24 * time.Hour
