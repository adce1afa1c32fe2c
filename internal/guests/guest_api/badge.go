package guest_api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/models"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
)

// Badge renders a checked-in guest's confirmation code as a QR PNG so the
// door staff can scan it off the guest's phone.
func (h *Handler) Badge(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestId")

	guest, err := h.GuestService.GetGuest(r.Context(), guestID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Guest not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Badge: %v", err))
		http.Error(w, "Failed to load guest", http.StatusInternalServerError)
		return
	}
	if guest.Status != models.StatusCheckedIn || guest.ConfirmationCode == nil {
		http.Error(w, "Guest is not checked in", http.StatusConflict)
		return
	}

	png, err := qrcode.Encode(*guest.ConfirmationCode, qrcode.Medium, 256)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Badge: failed to encode QR: %v", err))
		http.Error(w, "Failed to generate badge", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Badge: failed to write response: %v", err))
	}
}
