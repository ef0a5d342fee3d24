package handlers

import (
	"net/http"

	"workhub-manager/server/models"
	"workhub-manager/server/services"
)

type UserHandler struct {
	Users   *services.UserService
	Notices *services.NotificationService
}

func NewUserHandler(users *services.UserService, notices *services.NotificationService) *UserHandler {
	return &UserHandler{Users: users, Notices: notices}
}

func (h *UserHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.Users.GetTeam(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Users.UpdateProfile(r.Context(), identity(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status":  true,
		"message": "Profile Updated Successfully.",
		"user":    user,
	})
}

// SetActive sets the account's active flag from the body, or toggles it when
// the body omits isActive.
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	message, err := h.Users.SetActive(r.Context(), id, req.IsActive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, message)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}
