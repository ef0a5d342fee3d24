package handlers

import (
	"net/http"
)

func (h *UserHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	notices, err := h.Notices.List(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notices)
}

func (h *UserHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := h.Notices.MarkRead(r.Context(), identity(r), query.Get("isReadType"), query.Get("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Done")
}
