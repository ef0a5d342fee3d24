package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"workhub-manager/server/logging"
	"workhub-manager/server/middleware"
	"workhub-manager/server/models"
	"workhub-manager/server/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"status": true, "message": message})
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindConflict:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError maps service errors to the JSON error envelope. Unexpected errors
// are logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(services.KindOf(err))
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s failed: %v", r.Method, r.URL.Path, err)
		message = "Internal server error"
	}
	writeJSON(w, status, envelope{"status": false, "message": message})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return services.Validation("Invalid request body")
	}
	return nil
}

func pathID(r *http.Request) (primitive.ObjectID, error) {
	id, err := models.ParseID(mux.Vars(r)["id"])
	if err != nil {
		return primitive.NilObjectID, services.Validation("%v", err)
	}
	return id, nil
}

// identity returns the caller attached by ProtectRoute.
func identity(r *http.Request) models.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}
