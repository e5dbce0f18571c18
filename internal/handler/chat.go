package handler

import (
	"net/http"

	"github.com/shift-tracker/backend/internal/domain"
)

// HandleChatUpdate is the webhook the chat transport posts every inbound message or button
// press to. The reply is the list of messages to show the user.
func (h *Handler) HandleChatUpdate(w http.ResponseWriter, r *http.Request) {
	var upd domain.Update

	if err := h.readJSON(w, r, &upd); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(upd); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if upd.Text == "" && upd.Callback == "" {
		h.errorResponse(w, r, "Пустое сообщение")
		return
	}

	out := h.chat.Handle(r.Context(), upd)
	h.successResponse(w, r, "ok", out)
}
