package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/logger"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/models"

	"github.com/uptrace/bun"
)

// MaxBulkEntries caps one bulk request.
const MaxBulkEntries = 50

// DefaultUndoWindow is the grace period during which a check-in may be
// reversed, measured against the stored check-in timestamp.
const DefaultUndoWindow = 30 * time.Second

// GuestCachePattern matches every cached guest read (detail, list, stats).
const GuestCachePattern = "guests:*"

type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error
	GuestForUpdateTx(ctx context.Context, tx bun.Tx, guestID string) (*models.Guest, error)
	UpdateGuestTx(ctx context.Context, tx bun.Tx, guest *models.Guest) error
	InsertLogEntryTx(ctx context.Context, tx bun.Tx, entry *models.CheckInLogEntry) error
}

type CacheInvalidator interface {
	InvalidatePattern(ctx context.Context, pattern string) error
}

type EventPublisher interface {
	PublishCheckInEvent(event models.CheckInEventDto) error
}

// Service is the check-in transaction engine. Each operation runs as one
// transaction: the guest row is read under an exclusive lock, validated,
// mutated, and the audit row appended before commit. The cache is
// invalidated and the event published only after a successful commit.
type Service struct {
	DB         Store
	Cache      CacheInvalidator
	Events     EventPublisher
	Logger     *logger.Logger
	UndoWindow time.Duration
	Now        func() time.Time
}

func NewService(db Store, cache CacheInvalidator, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		DB:         db,
		Cache:      cache,
		Events:     events,
		Logger:     log,
		UndoWindow: DefaultUndoWindow,
		Now:        time.Now,
	}
}

// CheckIn transitions one guest from NotCheckedIn to CheckedIn, admitting
// plusOnes companions. Business failures come back as typed errors carrying
// the context the caller needs to render them.
func (s *Service) CheckIn(ctx context.Context, guestID string, plusOnes int, notes, actor string) (*models.Guest, error) {
	if guestID == "" {
		return nil, &ValidationError{Message: "guest id is required"}
	}
	if plusOnes < 0 {
		return nil, &ValidationError{Message: "plus_ones must not be negative"}
	}

	var updated *models.Guest
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		guest, err := s.lockGuest(ctx, tx, guestID)
		if err != nil {
			return err
		}
		if err := s.applyCheckIn(ctx, tx, guest, plusOnes, notes, actor, models.ActionCheckIn); err != nil {
			return err
		}
		updated = guest
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logCheckIn(models.ActionCheckIn, guestID, fmt.Sprintf("checked in by %s (+%d)", actor, plusOnes))
	s.invalidateCache(ctx)
	s.publish(models.NewCheckInEventDto(updated, models.ActionCheckIn, actor, *updated.CheckInTime))
	return updated, nil
}

// UndoCheckIn reverses a check-in performed within the undo window. The
// voided confirmation code is preserved in the audit row; the guest row is
// cleared back to its pre-arrival state.
func (s *Service) UndoCheckIn(ctx context.Context, guestID, reason, actor string) (*models.Guest, error) {
	if guestID == "" {
		return nil, &ValidationError{Message: "guest id is required"}
	}

	var updated *models.Guest
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		guest, err := s.lockGuest(ctx, tx, guestID)
		if err != nil {
			return err
		}
		if guest.Status != models.StatusCheckedIn {
			return &NotCheckedInError{GuestID: guestID}
		}
		if guest.CheckInTime == nil {
			return &InvalidCheckInError{GuestID: guestID}
		}

		now := s.Now()
		elapsed := now.Sub(*guest.CheckInTime)
		if elapsed > s.UndoWindow {
			return &TimeWindowExpiredError{GuestID: guestID, Elapsed: elapsed, Window: s.UndoWindow}
		}

		voidedCode := ""
		if guest.ConfirmationCode != nil {
			voidedCode = *guest.ConfirmationCode
		}
		voidedPlusOnes := guest.PlusOnesCheckedIn

		guest.Status = models.StatusNotCheckedIn
		guest.CheckInTime = nil
		guest.ConfirmationCode = nil
		guest.PlusOnesCheckedIn = 0
		guest.CheckedInBy = nil
		if err := s.DB.UpdateGuestTx(ctx, tx, guest); err != nil {
			return fmt.Errorf("failed to update guest %s: %w", guestID, err)
		}

		// The undo log row is the only place the voided code survives.
		logNotes := "Voided code: " + voidedCode
		if reason != "" {
			logNotes = "Undo reason: " + reason + "; " + logNotes
		}
		entry := &models.CheckInLogEntry{
			Timestamp:        now,
			GuestID:          &guest.GuestID,
			GuestName:        guest.DisplayName(),
			Action:           models.ActionUndoCheckIn,
			ActorName:        actor,
			PlusOnes:         voidedPlusOnes,
			Notes:            logNotes,
			ConfirmationCode: voidedCode,
		}
		if err := s.DB.InsertLogEntryTx(ctx, tx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry for guest %s: %w", guestID, err)
		}
		updated = guest
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logCheckIn(models.ActionUndoCheckIn, guestID, "undone by "+actor)
	s.invalidateCache(ctx)
	s.publish(models.NewCheckInEventDto(updated, models.ActionUndoCheckIn, actor, s.Now()))
	return updated, nil
}

// errBulkRollback aborts the bulk transaction after every entry has been
// examined, so the full failure set reaches the caller.
var errBulkRollback = errors.New("bulk check-in rolled back")

// BulkCheckIn checks in up to MaxBulkEntries guests as one all-or-nothing
// batch. Entries are processed in input order; every entry is validated
// even after the first failure so the report is complete. If any entry
// fails, the whole transaction rolls back and nothing is committed. A
// populated Failed list is a successful call whose outcome is "nothing
// changed".
func (s *Service) BulkCheckIn(ctx context.Context, entries []models.BulkCheckInEntry, actor string) (*models.BulkCheckInResult, error) {
	if len(entries) == 0 {
		return nil, &ValidationError{Message: "entries must not be empty"}
	}
	if len(entries) > MaxBulkEntries {
		return nil, &ValidationError{Message: fmt.Sprintf("at most %d entries per bulk check-in, got %d", MaxBulkEntries, len(entries))}
	}
	for i, entry := range entries {
		if entry.GuestID == "" {
			return nil, &ValidationError{Message: fmt.Sprintf("entry %d has no guest id", i)}
		}
	}

	result := &models.BulkCheckInResult{
		CheckedIn: make([]models.Guest, 0, len(entries)),
		Failed:    make([]models.BulkFailure, 0),
	}

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for _, entry := range entries {
			if entry.GuestID == "" {
				result.Failed = append(result.Failed, models.BulkFailure{
					Reason: ReasonInvalidGuestID,
					Detail: "entry has no guest id",
				})
				continue
			}

			guest, err := s.DB.GuestForUpdateTx(ctx, tx, entry.GuestID)
			if errors.Is(err, sql.ErrNoRows) {
				result.Failed = append(result.Failed, models.BulkFailure{
					GuestID: entry.GuestID,
					Reason:  ReasonNotFound,
				})
				continue
			}
			if err != nil {
				result.Failed = append(result.Failed, models.BulkFailure{
					GuestID: entry.GuestID,
					Reason:  ReasonProcessingError,
					Detail:  err.Error(),
				})
				continue
			}

			if guest.Status == models.StatusCheckedIn {
				failure := models.BulkFailure{GuestID: entry.GuestID, Reason: ReasonAlreadyCheckedIn}
				if guest.CheckedInBy != nil {
					failure.Detail = "checked in by " + *guest.CheckedInBy
				}
				result.Failed = append(result.Failed, failure)
				continue
			}
			if entry.PlusOnes < 0 || entry.PlusOnes > guest.PlusOnesAllowed {
				result.Failed = append(result.Failed, models.BulkFailure{
					GuestID: entry.GuestID,
					Reason:  ReasonPlusOnesExceeded,
					Detail:  fmt.Sprintf("requested %d, allowed %d", entry.PlusOnes, guest.PlusOnesAllowed),
				})
				continue
			}

			if err := s.applyCheckIn(ctx, tx, guest, entry.PlusOnes, entry.Notes, actor, models.ActionBulkCheckIn); err != nil {
				result.Failed = append(result.Failed, models.BulkFailure{
					GuestID: entry.GuestID,
					Reason:  ReasonProcessingError,
					Detail:  err.Error(),
				})
				continue
			}
			result.CheckedIn = append(result.CheckedIn, *guest)
		}

		if len(result.Failed) > 0 {
			return errBulkRollback
		}
		return nil
	})
	if err != nil && !errors.Is(err, errBulkRollback) {
		return nil, err
	}

	if !result.Committed() {
		// Rolled back: guests that individually passed were not admitted.
		result.CheckedIn = result.CheckedIn[:0]
		s.logOp("BULK", fmt.Sprintf("bulk check-in by %s rolled back, %d failed entries", actor, len(result.Failed)))
		return result, nil
	}

	s.logOp("BULK", fmt.Sprintf("bulk check-in by %s committed, %d guests", actor, len(result.CheckedIn)))
	s.invalidateCache(ctx)
	for i := range result.CheckedIn {
		guest := &result.CheckedIn[i]
		s.publish(models.NewCheckInEventDto(guest, models.ActionBulkCheckIn, actor, *guest.CheckInTime))
	}
	return result, nil
}

// lockGuest reads the guest row under an exclusive lock, mapping a missing
// row to the typed NotFound failure.
func (s *Service) lockGuest(ctx context.Context, tx bun.Tx, guestID string) (*models.Guest, error) {
	guest, err := s.DB.GuestForUpdateTx(ctx, tx, guestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{GuestID: guestID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest %s: %w", guestID, err)
	}
	return guest, nil
}

// applyCheckIn validates and applies the NotCheckedIn -> CheckedIn
// transition on an already locked guest, writing both the guest row and the
// audit row within tx.
func (s *Service) applyCheckIn(ctx context.Context, tx bun.Tx, guest *models.Guest, plusOnes int, notes, actor, action string) error {
	if guest.Status == models.StatusCheckedIn {
		failure := &AlreadyCheckedInError{GuestID: guest.GuestID}
		if guest.CheckInTime != nil {
			failure.CheckInTime = *guest.CheckInTime
		}
		if guest.CheckedInBy != nil {
			failure.CheckedInBy = *guest.CheckedInBy
		}
		if guest.ConfirmationCode != nil {
			failure.ConfirmationCode = *guest.ConfirmationCode
		}
		return failure
	}
	if plusOnes > guest.PlusOnesAllowed {
		return &PlusOnesExceededError{GuestID: guest.GuestID, Requested: plusOnes, Allowed: guest.PlusOnesAllowed}
	}

	now := s.Now()
	code := s.confirmationCode(guest, actor, now)

	guest.Status = models.StatusCheckedIn
	guest.CheckInTime = &now
	guest.ConfirmationCode = &code
	guest.PlusOnesCheckedIn = plusOnes
	guest.CheckedInBy = &actor
	// Blank notes never clobber whatever was on the record.
	if notes != "" {
		guest.Notes = notes
	}

	if err := s.DB.UpdateGuestTx(ctx, tx, guest); err != nil {
		return fmt.Errorf("failed to update guest %s: %w", guest.GuestID, err)
	}

	entry := &models.CheckInLogEntry{
		Timestamp:        now,
		GuestID:          &guest.GuestID,
		GuestName:        guest.DisplayName(),
		Action:           action,
		ActorName:        actor,
		PlusOnes:         plusOnes,
		Notes:            guest.Notes,
		ConfirmationCode: code,
	}
	if err := s.DB.InsertLogEntryTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry for guest %s: %w", guest.GuestID, err)
	}
	return nil
}

// confirmationCode derives the human-presentable code shown at the door.
// It embeds actor, guest name and a millisecond timestamp; that makes it
// collision-free in practice but it is a coupon code, not a security token.
func (s *Service) confirmationCode(guest *models.Guest, actor string, now time.Time) string {
	return strings.ToUpper(fmt.Sprintf("%s-%s%s-%d", actor, guest.FirstName, guest.LastName, now.UnixMilli()))
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidatePattern(ctx, GuestCachePattern); err != nil {
		s.logErr("CACHE", fmt.Sprintf("failed to invalidate guest cache: %v", err))
	}
}

func (s *Service) publish(event models.CheckInEventDto) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishCheckInEvent(event); err != nil {
		s.logErr("KAFKA", fmt.Sprintf("failed to publish %s event for guest %s: %v", event.Action, event.GuestID, err))
	}
}

func (s *Service) logOp(category, message string) {
	if s.Logger != nil {
		s.Logger.Info(category, message)
	}
}

func (s *Service) logCheckIn(action, guestID, message string) {
	if s.Logger != nil {
		s.Logger.LogCheckIn(action, guestID, message)
	}
}

func (s *Service) logErr(category, message string) {
	if s.Logger != nil {
		s.Logger.Error(category, message)
	}
}
