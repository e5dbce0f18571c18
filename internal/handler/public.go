package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shift-tracker/backend/internal/domain"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "ok", nil)
}

// GetPublicCalendar serves the dated shifts of the token owner without a session, so the
// link can be pasted into a calendar app.
func (h *Handler) GetPublicCalendar(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	user, err := h.repository.GetUserByAPIToken(token)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "Календарь не найден")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	shifts, err := h.repository.GetShiftsByUser(user.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Календарь получен", domain.CalendarEvents(shifts))
}
