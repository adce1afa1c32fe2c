package checkin

import (
	"fmt"
	"time"
)

// Bulk failure reason codes reported per entry.
const (
	ReasonNotFound         = "NOT_FOUND"
	ReasonAlreadyCheckedIn = "ALREADY_CHECKED_IN"
	ReasonPlusOnesExceeded = "PLUS_ONES_EXCEEDED"
	ReasonInvalidGuestID   = "INVALID_GUEST_ID"
	ReasonProcessingError  = "PROCESSING_ERROR"
)

// NotFoundError: the guest id resolved to no row.
type NotFoundError struct {
	GuestID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("guest %s not found", e.GuestID)
}

// AlreadyCheckedInError carries the prior check-in so the caller can show
// who admitted the guest and when.
type AlreadyCheckedInError struct {
	GuestID          string
	CheckInTime      time.Time
	CheckedInBy      string
	ConfirmationCode string
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("guest %s already checked in by %s at %s", e.GuestID, e.CheckedInBy, e.CheckInTime.Format(time.RFC3339))
}

// PlusOnesExceededError: the request asked for more companions than the
// guest's allowance.
type PlusOnesExceededError struct {
	GuestID   string
	Requested int
	Allowed   int
}

func (e *PlusOnesExceededError) Error() string {
	return fmt.Sprintf("guest %s allows %d plus-ones, %d requested", e.GuestID, e.Allowed, e.Requested)
}

// NotCheckedInError: undo was requested for a guest who never arrived.
type NotCheckedInError struct {
	GuestID string
}

func (e *NotCheckedInError) Error() string {
	return fmt.Sprintf("guest %s is not checked in", e.GuestID)
}

// InvalidCheckInError: the guest row claims CheckedIn but has no check-in
// timestamp. Should not occur while the status/fields invariant holds.
type InvalidCheckInError struct {
	GuestID string
}

func (e *InvalidCheckInError) Error() string {
	return fmt.Sprintf("guest %s has inconsistent check-in state", e.GuestID)
}

// TimeWindowExpiredError: the undo grace period has passed.
type TimeWindowExpiredError struct {
	GuestID string
	Elapsed time.Duration
	Window  time.Duration
}

func (e *TimeWindowExpiredError) Error() string {
	return fmt.Sprintf("undo window expired for guest %s: %.0fs elapsed, limit %.0fs",
		e.GuestID, e.Elapsed.Seconds(), e.Window.Seconds())
}

// ValidationError rejects a malformed bulk request before any transaction
// is opened.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
