package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type DB struct {
	Bun *bun.DB
}

// RunInTx executes fn inside a single transaction. Any error (or panic)
// rolls the transaction back; nothing fn wrote is observable afterwards.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, fn)
}

// GuestForUpdateTx reads one guest under an exclusive row lock scoped to the
// transaction. A second transaction selecting the same guest blocks until
// this one commits or rolls back. SQLite has no FOR UPDATE clause; its
// single-writer transactions give the same per-row exclusion.
func (d *DB) GuestForUpdateTx(ctx context.Context, tx bun.Tx, guestID string) (*models.Guest, error) {
	var guest models.Guest
	q := tx.NewSelect().
		Model(&guest).
		Where("guest_id = ?", guestID).
		Limit(1)
	if d.Bun.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return &guest, nil
}

// UpdateGuestTx writes the check-in state columns of a guest within the
// transaction. Only the engine-owned columns are listed so concurrent admin
// edits to contact fields are never clobbered.
func (d *DB) UpdateGuestTx(ctx context.Context, tx bun.Tx, guest *models.Guest) error {
	_, err := tx.NewUpdate().
		Model(guest).
		Column("status", "check_in_time", "confirmation_code", "plus_ones_checked_in", "checked_in_by", "notes").
		Where("guest_id = ?", guest.GuestID).
		Exec(ctx)
	return err
}

// InsertLogEntryTx appends one audit row within the transaction.
func (d *DB) InsertLogEntryTx(ctx context.Context, tx bun.Tx, entry *models.CheckInLogEntry) error {
	_, err := tx.NewInsert().Model(entry).Exec(ctx)
	return err
}

// GuestByID fetches one guest without locking.
func (d *DB) GuestByID(ctx context.Context, guestID string) (*models.Guest, error) {
	var guest models.Guest
	err := d.Bun.NewSelect().
		Model(&guest).
		Where("guest_id = ?", guestID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

// ListGuests returns a filtered, paged guest list plus the unpaged total.
func (d *DB) ListGuests(ctx context.Context, query models.GuestListQuery) (*models.GuestList, error) {
	guests := make([]models.Guest, 0)
	q := d.Bun.NewSelect().Model(&guests)
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Search != "" {
		pattern := "%" + strings.ToLower(query.Search) + "%"
		q = q.Where("lower(first_name || ' ' || last_name) LIKE ?", pattern)
	}
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size < 1 {
		size = 50
	}
	err = q.Order("last_name", "first_name").
		Limit(size).
		Offset((page - 1) * size).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &models.GuestList{
		Guests:   guests,
		Total:    total,
		Page:     page,
		PageSize: size,
	}, nil
}

// Stats aggregates attendance counters across all guests.
func (d *DB) Stats(ctx context.Context) (*models.GuestStats, error) {
	var stats models.GuestStats
	err := d.Bun.NewSelect().
		Model((*models.Guest)(nil)).
		ColumnExpr("count(*) AS total_guests").
		ColumnExpr("count(*) FILTER (WHERE status = ?) AS checked_in", models.StatusCheckedIn).
		ColumnExpr("coalesce(sum(plus_ones_checked_in), 0) AS plus_ones_checked_in").
		Scan(ctx, &stats.TotalGuests, &stats.CheckedIn, &stats.PlusOnesCheckedIn)
	if err != nil {
		return nil, err
	}
	stats.NotCheckedIn = stats.TotalGuests - stats.CheckedIn
	stats.TotalAdmitted = stats.CheckedIn + stats.PlusOnesCheckedIn
	return &stats, nil
}

// InsertGuests seeds new guest rows. Duplicate ids surface as a DB error.
func (d *DB) InsertGuests(ctx context.Context, guests []models.Guest) error {
	if len(guests) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&guests).Exec(ctx)
	return err
}

// ApplyGuestPatch updates only the columns set in the patch.
func (d *DB) ApplyGuestPatch(ctx context.Context, guestID string, patch *models.GuestPatch) (*models.Guest, error) {
	guest, err := d.GuestByID(ctx, guestID)
	if err != nil {
		return nil, err
	}
	cols := patch.Columns()
	if len(cols) == 0 {
		return guest, nil
	}
	patch.Apply(guest)
	_, err = d.Bun.NewUpdate().
		Model(guest).
		Column(cols...).
		Where("guest_id = ?", guestID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return guest, nil
}

// LogEntriesForGuest returns the audit rows for one guest, oldest first.
func (d *DB) LogEntriesForGuest(ctx context.Context, guestID string) ([]models.CheckInLogEntry, error) {
	entries := make([]models.CheckInLogEntry, 0)
	err := d.Bun.NewSelect().
		Model(&entries).
		Where("guest_id = ?", guestID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
