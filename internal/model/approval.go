package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScopeSource is the approval scope of the original-language document.
const ScopeSource = "source"

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func (d Decision) Valid() bool { return d == DecisionApproved || d == DecisionRejected }

// ScopeState is the derived state of an approval scope; it is never stored.
type ScopeState string

const (
	ScopePending  ScopeState = "pending"
	ScopeApproved ScopeState = "approved"
	ScopeRejected ScopeState = "rejected"
)

// Approval is one reviewer decision on a (version, scope) pair.
// Rows are append-only; the current state of a scope is its latest decision.
type Approval struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	VersionID uuid.UUID `gorm:"type:char(36);not null;index:idx_approvals_version_scope,priority:1" json:"version_id"`
	Scope     string    `gorm:"type:varchar(10);not null;index:idx_approvals_version_scope,priority:2" json:"scope"` // "source" or a target language
	Role      string    `gorm:"type:varchar(50);not null" json:"role"`
	ActorID   string    `gorm:"type:varchar(100)" json:"actor_id"`
	Decision  Decision  `gorm:"type:varchar(10);not null" json:"decision"`
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a time-ordered UUIDv7, so ordering by id breaks ties
// between decisions recorded within the same timestamp in insertion order.
func (a *Approval) BeforeCreate(tx *gorm.DB) error {
	if a.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}
