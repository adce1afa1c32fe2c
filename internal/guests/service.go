package guests

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/cache"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/logger"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/models"

	"github.com/google/uuid"
)

type GuestDBLayer interface {
	GuestByID(ctx context.Context, guestID string) (*models.Guest, error)
	ListGuests(ctx context.Context, query models.GuestListQuery) (*models.GuestList, error)
	Stats(ctx context.Context) (*models.GuestStats, error)
	InsertGuests(ctx context.Context, guests []models.Guest) error
	ApplyGuestPatch(ctx context.Context, guestID string, patch *models.GuestPatch) (*models.Guest, error)
	LogEntriesForGuest(ctx context.Context, guestID string) ([]models.CheckInLogEntry, error)
}

// Service is the cache-fronted read side. The engine is the only writer of
// check-in state; this service only reads it, plus the admin seed import
// and contact-field edits that never touch check-in columns.
type Service struct {
	DB       GuestDBLayer
	Cache    cache.Cache
	Logger   *logger.Logger
	CacheTTL time.Duration
}

func NewService(db GuestDBLayer, c cache.Cache, log *logger.Logger, cacheTTL time.Duration) *Service {
	return &Service{DB: db, Cache: c, Logger: log, CacheTTL: cacheTTL}
}

// GetGuest returns one guest, served from cache when fresh.
func (s *Service) GetGuest(ctx context.Context, guestID string) (*models.Guest, error) {
	key := cache.DetailKey(guestID)
	var guest models.Guest
	if s.cacheGet(ctx, key, &guest) {
		return &guest, nil
	}

	fresh, err := s.DB.GuestByID(ctx, guestID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, fresh)
	return fresh, nil
}

// ListGuests returns a filtered page of guests.
func (s *Service) ListGuests(ctx context.Context, query models.GuestListQuery) (*models.GuestList, error) {
	key := cache.ListKey(query.Status, query.Search, query.Page, query.PageSize)
	var list models.GuestList
	if s.cacheGet(ctx, key, &list) {
		return &list, nil
	}

	fresh, err := s.DB.ListGuests(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, fresh)
	return fresh, nil
}

// Stats returns the aggregate attendance counters for the admin dashboard.
func (s *Service) Stats(ctx context.Context) (*models.GuestStats, error) {
	key := cache.StatsKey()
	var stats models.GuestStats
	if s.cacheGet(ctx, key, &stats) {
		return &stats, nil
	}

	fresh, err := s.DB.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, fresh)
	return fresh, nil
}

// ImportGuests seeds guest rows from an admin import. Guests arrive in the
// NotCheckedIn state regardless of what the import claims; ids are
// generated when missing.
func (s *Service) ImportGuests(ctx context.Context, guests []models.Guest) ([]models.Guest, error) {
	if len(guests) == 0 {
		return nil, fmt.Errorf("no guests to import")
	}
	now := time.Now()
	for i := range guests {
		if guests[i].GuestID == "" {
			guests[i].GuestID = uuid.NewString()
		}
		guests[i].Status = models.StatusNotCheckedIn
		guests[i].PlusOnesCheckedIn = 0
		guests[i].CheckInTime = nil
		guests[i].ConfirmationCode = nil
		guests[i].CheckedInBy = nil
		if guests[i].PlusOnesAllowed < 0 {
			return nil, fmt.Errorf("guest %s has negative plus-ones allowance", guests[i].GuestID)
		}
		guests[i].CreatedAt = now
	}
	if err := s.DB.InsertGuests(ctx, guests); err != nil {
		return nil, fmt.Errorf("failed to import guests: %w", err)
	}
	if s.Logger != nil {
		s.Logger.LogDatabase("INSERT", "guests", fmt.Sprintf("imported %d guests", len(guests)))
	}
	s.invalidate(ctx)
	return guests, nil
}

// UpdateGuest applies a partial update to a guest's editable fields.
func (s *Service) UpdateGuest(ctx context.Context, guestID string, patch *models.GuestPatch) (*models.Guest, error) {
	guest, err := s.DB.ApplyGuestPatch(ctx, guestID, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return guest, nil
}

// GuestHistory returns a guest's audit trail, oldest entry first.
func (s *Service) GuestHistory(ctx context.Context, guestID string) ([]models.CheckInLogEntry, error) {
	return s.DB.LogEntriesForGuest(ctx, guestID)
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.Cache == nil {
		return false
	}
	raw, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		s.logWarn(fmt.Sprintf("cache read failed for %s: %v", key, err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logWarn(fmt.Sprintf("cache entry %s is corrupt, dropping: %v", key, err))
		return false
	}
	if s.Logger != nil {
		s.Logger.LogCache("HIT", key, "served from cache")
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logWarn(fmt.Sprintf("failed to marshal cache value for %s: %v", key, err))
		return
	}
	if err := s.Cache.Set(ctx, key, raw, s.CacheTTL); err != nil {
		s.logWarn(fmt.Sprintf("cache write failed for %s: %v", key, err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidatePattern(ctx, "guests:*"); err != nil {
		s.logWarn(fmt.Sprintf("failed to invalidate guest cache: %v", err))
	}
}

func (s *Service) logWarn(message string) {
	if s.Logger != nil {
		s.Logger.Warn("CACHE", message)
	}
}
