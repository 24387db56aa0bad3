// Package sagalog persists the state of in-flight lifecycle sagas so a crash
// mid-saga is recoverable by the reconciliation sweep instead of leaving
// permanently orphaned records.
package sagalog

import (
	"time"

	"github.com/google/uuid"
)

// Saga kinds
const (
	KindCreate = "create"
	KindDelete = "delete"
)

// Saga states. Pending and Provisioned are in-flight; Committed and Failed
// are terminal; CompensatingRemoval marks a create saga whose library
// provisioning failed and whose user record is being rolled back.
const (
	StatePending             = "pending"
	StateProvisioned         = "provisioned"
	StateCommitted           = "committed"
	StateCompensatingRemoval = "compensating_removal"
	StateFailed              = "failed"
)

// Record is one saga instance.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Username  string    `json:"username"`
	UID       uuid.UUID `json:"uid"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the record needs no further attention.
func (r *Record) Terminal() bool {
	return r.State == StateCommitted || r.State == StateFailed
}
