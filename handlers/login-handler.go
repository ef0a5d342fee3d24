package handlers

import (
	"net/http"
	"time"

	"workhub-manager/server/logging"
	"workhub-manager/server/middleware"
	"workhub-manager/server/models"
	"workhub-manager/server/services"
)

type LoginHandler struct {
	Auth       *services.AuthService
	Production bool
}

func NewLoginHandler(auth *services.AuthService, production bool) *LoginHandler {
	return &LoginHandler{Auth: auth, Production: production}
}

// setSessionCookie issues the httpOnly session cookie. Cross-site cookies need
// Secure and SameSite=None, so those are only set in production.
func (h *LoginHandler) setSessionCookie(w http.ResponseWriter, token string) {
	cookie := &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(h.Auth.JWTService.TTL().Seconds()),
		Expires:  time.Now().Add(h.Auth.JWTService.TTL()),
		SameSite: http.SameSiteLaxMode,
	}
	if h.Production {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
}

func (h *LoginHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var caller *models.Identity
	if id, ok := middleware.IdentityFrom(r.Context()); ok {
		caller = &id
	}

	result, err := h.Auth.Register(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if result.Token != "" {
		h.setSessionCookie(w, result.Token)
	}

	writeJSON(w, http.StatusCreated, result.User)
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: Login failed for %s: %v", req.Email, err)
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	logging.Logger.Infof("Event ID: LOGIN_SUCCESS, Description: User %s logged in", user.ID.Hex())
	writeJSON(w, http.StatusOK, user)
}

func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	writeMessage(w, http.StatusOK, "Logout successful")
}

func (h *LoginHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), identity(r), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}
