package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Audit actions. One row is written per successful state transition.
const (
	ActionCheckIn     = "CHECK_IN"
	ActionUndoCheckIn = "UNDO_CHECK_IN"
	ActionBulkCheckIn = "BULK_CHECK_IN"
)

// CheckInLogEntry is the append-only audit trail. Rows are never updated or
// deleted; the guest_id is nullable so history survives guest removal.
type CheckInLogEntry struct {
	bun.BaseModel `bun:"table:checkin_log"`

	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	Timestamp        time.Time `bun:"timestamp,notnull" json:"timestamp"`
	GuestID          *string   `bun:"guest_id" json:"guest_id,omitempty"`
	GuestName        string    `bun:"guest_name,notnull" json:"guest_name"`
	Action           string    `bun:"action,notnull" json:"action"`
	ActorName        string    `bun:"actor_name,notnull" json:"actor_name"`
	PlusOnes         int       `bun:"plus_ones,notnull" json:"plus_ones"`
	Notes            string    `bun:"notes" json:"notes,omitempty"`
	ConfirmationCode string    `bun:"confirmation_code" json:"confirmation_code,omitempty"`
}
