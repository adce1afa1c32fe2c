package guests_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/cache"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/checkin"
	checkin_db "github.com/Nunusavi/guestlist-pro-sub000/internal/checkin/db"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/guests"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupGuestService(t *testing.T) (*guests.Service, *checkin_db.DB, *cache.MemoryCache) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	require.NoError(t, bunDB.ResetModel(ctx, (*models.Guest)(nil)))
	require.NoError(t, bunDB.ResetModel(ctx, (*models.CheckInLogEntry)(nil)))

	store := &checkin_db.DB{Bun: bunDB}
	memCache := cache.NewMemoryCache()
	svc := guests.NewService(store, memCache, nil, 30*time.Second)
	return svc, store, memCache
}

func seedGuest(t *testing.T, store *checkin_db.DB, guest models.Guest) {
	t.Helper()
	if guest.Status == "" {
		guest.Status = models.StatusNotCheckedIn
	}
	if guest.CreatedAt.IsZero() {
		guest.CreatedAt = time.Now()
	}
	require.NoError(t, store.InsertGuests(context.Background(), []models.Guest{guest}))
}

func TestGetGuestServesFromCache(t *testing.T) {
	svc, store, _ := setupGuestService(t)
	ctx := context.Background()

	seedGuest(t, store, models.Guest{GuestID: "G001", FirstName: "Ada", LastName: "Lovelace"})

	first, err := svc.GetGuest(ctx, "G001")
	require.NoError(t, err)
	assert.Equal(t, "Ada", first.FirstName)

	// A direct DB write does not invalidate; the stale cached copy is served
	// until the TTL or an engine mutation clears it.
	name := "Augusta"
	_, err = store.ApplyGuestPatch(ctx, "G001", &models.GuestPatch{FirstName: &name})
	require.NoError(t, err)

	cached, err := svc.GetGuest(ctx, "G001")
	require.NoError(t, err)
	assert.Equal(t, "Ada", cached.FirstName)
}

func TestGetGuestCacheExpires(t *testing.T) {
	svc, store, memCache := setupGuestService(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	memCache.Now = func() time.Time { return now }

	seedGuest(t, store, models.Guest{GuestID: "G001", FirstName: "Ada", LastName: "Lovelace"})

	_, err := svc.GetGuest(ctx, "G001")
	require.NoError(t, err)

	name := "Augusta"
	_, err = store.ApplyGuestPatch(ctx, "G001", &models.GuestPatch{FirstName: &name})
	require.NoError(t, err)

	now = now.Add(31 * time.Second)
	fresh, err := svc.GetGuest(ctx, "G001")
	require.NoError(t, err)
	assert.Equal(t, "Augusta", fresh.FirstName, "an expired entry must be refetched")
}

func TestEngineMutationInvalidatesReads(t *testing.T) {
	svc, store, memCache := setupGuestService(t)
	ctx := context.Background()

	seedGuest(t, store, models.Guest{GuestID: "G001", FirstName: "Ada", LastName: "Lovelace", PlusOnesAllowed: 1})

	// Warm every read path.
	_, err := svc.GetGuest(ctx, "G001")
	require.NoError(t, err)
	statsBefore, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, statsBefore.CheckedIn)

	engine := checkin.NewService(store, memCache, nil, nil)
	_, err = engine.CheckIn(ctx, "G001", 1, "", "Jane")
	require.NoError(t, err)

	// The next reads must see the committed state immediately.
	guest, err := svc.GetGuest(ctx, "G001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, guest.Status)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CheckedIn)
	assert.Equal(t, 2, stats.TotalAdmitted)
}

func TestListGuestsCachedPerQuery(t *testing.T) {
	svc, store, _ := setupGuestService(t)
	ctx := context.Background()

	seedGuest(t, store, models.Guest{GuestID: "G001", FirstName: "Ada", LastName: "Lovelace", Status: models.StatusCheckedIn})
	seedGuest(t, store, models.Guest{GuestID: "G002", FirstName: "Alan", LastName: "Turing"})

	all, err := svc.ListGuests(ctx, models.GuestListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	checkedIn, err := svc.ListGuests(ctx, models.GuestListQuery{Status: models.StatusCheckedIn})
	require.NoError(t, err)
	assert.Equal(t, 1, checkedIn.Total)
}

func TestImportGuests(t *testing.T) {
	svc, store, _ := setupGuestService(t)
	ctx := context.Background()

	code := "STALE-CODE"
	imported, err := svc.ImportGuests(ctx, []models.Guest{
		{GuestID: "G001", FirstName: "Ada", LastName: "Lovelace", PlusOnesAllowed: 2,
			Status: models.StatusCheckedIn, ConfirmationCode: &code, PlusOnesCheckedIn: 9},
		{FirstName: "Alan", LastName: "Turing"},
	})
	require.NoError(t, err)
	require.Len(t, imported, 2)

	// Import never carries check-in state, whatever the payload claimed.
	stored, err := store.GuestByID(ctx, "G001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotCheckedIn, stored.Status)
	assert.Nil(t, stored.ConfirmationCode)
	assert.Equal(t, 0, stored.PlusOnesCheckedIn)

	// Missing ids are generated.
	assert.NotEmpty(t, imported[1].GuestID)
}

func TestImportGuestsRejectsNegativeAllowance(t *testing.T) {
	svc, _, _ := setupGuestService(t)

	_, err := svc.ImportGuests(context.Background(), []models.Guest{
		{GuestID: "G001", FirstName: "Ada", LastName: "Lovelace", PlusOnesAllowed: -1},
	})
	require.Error(t, err)
}

func TestImportGuestsEmpty(t *testing.T) {
	svc, _, _ := setupGuestService(t)

	_, err := svc.ImportGuests(context.Background(), nil)
	require.Error(t, err)
}

func TestUpdateGuestInvalidatesCache(t *testing.T) {
	svc, store, _ := setupGuestService(t)
	ctx := context.Background()

	seedGuest(t, store, models.Guest{GuestID: "G001", FirstName: "Ada", LastName: "Lovelace"})

	_, err := svc.GetGuest(ctx, "G001")
	require.NoError(t, err)

	email := "ada@example.com"
	updated, err := svc.UpdateGuest(ctx, "G001", &models.GuestPatch{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)

	fresh, err := svc.GetGuest(ctx, "G001")
	require.NoError(t, err)
	assert.Equal(t, email, fresh.Email)
}

func TestGuestHistory(t *testing.T) {
	svc, store, memCache := setupGuestService(t)
	ctx := context.Background()

	seedGuest(t, store, models.Guest{GuestID: "G001", FirstName: "Ada", LastName: "Lovelace"})

	engine := checkin.NewService(store, memCache, nil, nil)
	base := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	engine.Now = func() time.Time { return base }
	_, err := engine.CheckIn(ctx, "G001", 0, "", "Jane")
	require.NoError(t, err)
	engine.Now = func() time.Time { return base.Add(5 * time.Second) }
	_, err = engine.UndoCheckIn(ctx, "G001", "typo", "Jane")
	require.NoError(t, err)

	history, err := svc.GuestHistory(ctx, "G001")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ActionCheckIn, history[0].Action)
	assert.Equal(t, models.ActionUndoCheckIn, history[1].Action)
}
