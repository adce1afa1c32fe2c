package guest_api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/auth"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/checkin"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/guests"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/logger"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/models"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler is the thin caller in front of the engine: it validates request
// shape, resolves the actor, and translates typed engine failures into
// HTTP responses. All business rules live in the services.
type Handler struct {
	CheckInService *checkin.Service
	GuestService   *guests.Service
	Logger         *logger.Logger
}

func NewHandler(checkInService *checkin.Service, guestService *guests.Service, log *logger.Logger) *Handler {
	return &Handler{
		CheckInService: checkInService,
		GuestService:   guestService,
		Logger:         log,
	}
}

// Routes mounts the guest endpoints on a chi router. Guest seeding and
// record edits mutate data outside the engine, so they require the admin
// role; check-in operations and reads are open to every usher.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListGuests)
	r.Get("/stats", h.GetStats)
	r.Post("/bulk-checkin", h.BulkCheckIn)
	r.With(auth.RequireAdmin).Post("/import", h.ImportGuests)
	r.Get("/{guestId}", h.GetGuest)
	r.With(auth.RequireAdmin).Patch("/{guestId}", h.UpdateGuest)
	r.Get("/{guestId}/history", h.GuestHistory)
	r.Get("/{guestId}/badge", h.Badge)
	r.Post("/{guestId}/checkin", h.CheckInGuest)
	r.Post("/{guestId}/undo-checkin", h.UndoCheckIn)
	return r
}

func (h *Handler) CheckInGuest(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestId")
	actor := auth.Actor(r.Context())
	if actor == nil {
		http.Error(w, "actor identity missing", http.StatusUnauthorized)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CheckInGuest: guestId=%s actor=%s", guestID, actor.Username))

	var req models.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	guest, err := h.CheckInService.CheckIn(r.Context(), guestID, req.PlusOnes, req.Notes, actor.DisplayName)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Guest checked in", guest))
}

func (h *Handler) UndoCheckIn(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestId")
	actor := auth.Actor(r.Context())
	if actor == nil {
		http.Error(w, "actor identity missing", http.StatusUnauthorized)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UndoCheckIn: guestId=%s actor=%s", guestID, actor.Username))

	var req models.UndoCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	guest, err := h.CheckInService.UndoCheckIn(r.Context(), guestID, req.Reason, actor.DisplayName)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Check-in undone", guest))
}

func (h *Handler) BulkCheckIn(w http.ResponseWriter, r *http.Request) {
	actor := auth.Actor(r.Context())
	if actor == nil {
		http.Error(w, "actor identity missing", http.StatusUnauthorized)
		return
	}

	var req models.BulkCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("BulkCheckIn: %d entries, actor=%s", len(req.Entries), actor.Username))

	result, err := h.CheckInService.BulkCheckIn(r.Context(), req.Entries, actor.DisplayName)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	// A populated failed list means the whole batch rolled back. The call
	// itself succeeded, so the report goes back with 200 and the caller
	// inspects the failure set.
	if !result.Committed() {
		h.writeJSON(w, http.StatusOK, utils.ErrorResponseWithData("Bulk check-in rolled back", "one or more entries failed", result))
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Bulk check-in complete", result))
}

func (h *Handler) GetGuest(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestId")

	guest, err := h.GuestService.GetGuest(r.Context(), guestID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Guest not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetGuest: %v", err))
		http.Error(w, "Failed to load guest", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Guest", guest))
}

func (h *Handler) ListGuests(w http.ResponseWriter, r *http.Request) {
	query := models.GuestListQuery{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	query.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	query.PageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))

	list, err := h.GuestService.ListGuests(r.Context(), query)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListGuests: %v", err))
		http.Error(w, "Failed to list guests", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Guests", list))
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.GuestService.Stats(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetStats: %v", err))
		http.Error(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Stats", stats))
}

func (h *Handler) GuestHistory(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestId")

	entries, err := h.GuestService.GuestHistory(r.Context(), guestID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GuestHistory: %v", err))
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("History", entries))
}

func (h *Handler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestId")

	var patch models.GuestPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	guest, err := h.GuestService.UpdateGuest(r.Context(), guestID, &patch)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Guest not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateGuest: %v", err))
		http.Error(w, "Failed to update guest", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Guest updated", guest))
}

func (h *Handler) ImportGuests(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Guests []models.Guest `json:"guests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	imported, err := h.GuestService.ImportGuests(r.Context(), req.Guests)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ImportGuests: %v", err))
		http.Error(w, "Import failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse(fmt.Sprintf("%d guests imported", len(imported)), imported))
}

// writeEngineError maps the engine's closed failure taxonomy onto HTTP.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var (
		notFound   *checkin.NotFoundError
		already    *checkin.AlreadyCheckedInError
		plusOnes   *checkin.PlusOnesExceededError
		notChecked *checkin.NotCheckedInError
		invalid    *checkin.InvalidCheckInError
		expired    *checkin.TimeWindowExpiredError
		validation *checkin.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		h.writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Guest not found", err.Error()))
	case errors.As(err, &already):
		h.writeJSON(w, http.StatusConflict, utils.ErrorResponseWithData("Guest already checked in", err.Error(), map[string]interface{}{
			"check_in_time":     already.CheckInTime,
			"checked_in_by":     already.CheckedInBy,
			"confirmation_code": already.ConfirmationCode,
		}))
	case errors.As(err, &plusOnes):
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponseWithData("Plus-ones allowance exceeded", err.Error(), map[string]interface{}{
			"requested": plusOnes.Requested,
			"allowed":   plusOnes.Allowed,
		}))
	case errors.As(err, &notChecked):
		h.writeJSON(w, http.StatusConflict, utils.ErrorResponse("Guest is not checked in", err.Error()))
	case errors.As(err, &invalid):
		h.writeJSON(w, http.StatusConflict, utils.ErrorResponse("Guest check-in state is inconsistent", err.Error()))
	case errors.As(err, &expired):
		h.writeJSON(w, http.StatusConflict, utils.ErrorResponseWithData("Undo window expired", err.Error(), map[string]interface{}{
			"elapsed_seconds": int(expired.Elapsed.Seconds()),
			"window_seconds":  int(expired.Window.Seconds()),
		}))
	case errors.As(err, &validation):
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", err.Error()))
	default:
		h.Logger.Error("API", fmt.Sprintf("engine error: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal error", "operation failed"))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}
