package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Guest status values. A guest is either waiting to arrive or admitted;
// there is no third state.
const (
	StatusNotCheckedIn = "NOT_CHECKED_IN"
	StatusCheckedIn    = "CHECKED_IN"
)

type Guest struct {
	bun.BaseModel `bun:"table:guests"`

	GuestID           string     `bun:"guest_id,pk" json:"guest_id"`
	FirstName         string     `bun:"first_name,notnull" json:"first_name"`
	LastName          string     `bun:"last_name,notnull" json:"last_name"`
	Email             string     `bun:"email" json:"email,omitempty"`
	Phone             string     `bun:"phone" json:"phone,omitempty"`
	TicketClass       string     `bun:"ticket_class" json:"ticket_class"`
	PlusOnesAllowed   int        `bun:"plus_ones_allowed,notnull" json:"plus_ones_allowed"`
	PlusOnesCheckedIn int        `bun:"plus_ones_checked_in,notnull" json:"plus_ones_checked_in"`
	Status            string     `bun:"status,notnull" json:"status"`
	ConfirmationCode  *string    `bun:"confirmation_code" json:"confirmation_code,omitempty"`
	CheckInTime       *time.Time `bun:"check_in_time" json:"check_in_time,omitempty"`
	CheckedInBy       *string    `bun:"checked_in_by" json:"checked_in_by,omitempty"`
	Notes             string     `bun:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time  `bun:"created_at,notnull" json:"created_at"`
}

// DisplayName returns the name recorded in audit rows and confirmation codes.
func (g *Guest) DisplayName() string {
	return g.FirstName + " " + g.LastName
}

type CheckInRequest struct {
	PlusOnes int    `json:"plus_ones"`
	Notes    string `json:"notes"`
}

type UndoCheckInRequest struct {
	Reason string `json:"reason"`
}

type BulkCheckInEntry struct {
	GuestID  string `json:"guest_id"`
	PlusOnes int    `json:"plus_ones"`
	Notes    string `json:"notes"`
}

type BulkCheckInRequest struct {
	Entries []BulkCheckInEntry `json:"entries"`
}

// BulkFailure describes why one entry of a batch was rejected. A non-empty
// failure set means the whole batch was rolled back.
type BulkFailure struct {
	GuestID string `json:"guest_id"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

type BulkCheckInResult struct {
	CheckedIn []Guest       `json:"checked_in"`
	Failed    []BulkFailure `json:"failed"`
}

// Committed reports whether the batch actually took effect.
func (r *BulkCheckInResult) Committed() bool {
	return len(r.Failed) == 0
}

type GuestListQuery struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

type GuestList struct {
	Guests   []Guest `json:"guests"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

type GuestStats struct {
	TotalGuests       int `json:"total_guests"`
	CheckedIn         int `json:"checked_in"`
	NotCheckedIn      int `json:"not_checked_in"`
	PlusOnesCheckedIn int `json:"plus_ones_checked_in"`
	TotalAdmitted     int `json:"total_admitted"`
}
