package rest

import (
	"errors"
	"net/http"

	"github.com/rbroggi/accountsvc/internal/core/model"
	log "github.com/sirupsen/logrus"
)

const (
	msgNotFound           = "Not found"
	msgUnauthorized       = "Unauthorized"
	msgInvalidCredentials = "Invalid email or password"
	msgMalformedBody      = "Bad request: malformed JSON body"
	msgInternal           = "Internal error"
)

// errorBody is the payload of every non-2xx response.
type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// statusFromError maps the usecase error taxonomy to an http status and a client-safe message.
func statusFromError(err error) (int, string) {
	var (
		validationErr *model.ValidationError
		conflictErr   *model.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &conflictErr):
		return http.StatusConflict, conflictErr.Error()
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeUsecaseError logs internal failures with their cause and answers with the mapped status.
func writeUsecaseError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, message := statusFromError(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).
			WithField("operation", operation).
			WithField("path", r.URL.Path).
			Error("error invoking usecase")
	} else {
		log.WithField("operation", operation).
			WithField("status", status).
			Debug(err.Error())
	}
	writeError(w, status, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Status: status, Message: message})
}
