package rest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/rbroggi/accountsvc/internal/core/model"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// jsonMarshaler encodes and decodes every body served by this package.
var jsonMarshaler runtime.Marshaler = &runtime.JSONBuiltin{}

// UserHandlerArgs are the mandatory args to instantiate the UserHandler.
type UserHandlerArgs struct {
	// Usecase is the usecase for user-service
	Usecase userServiceUsecase
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(args UserHandlerArgs) *UserHandler {
	return &UserHandler{usecase: args.Usecase}
}

// UserHandler implements the user and auth HTTP endpoints.
type UserHandler struct {
	usecase userServiceUsecase
}

// CreateUser handles POST /users/.
func (u *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var args model.CreateUserArgs
	if !decodeBody(w, r, &args) {
		return
	}
	resp, err := u.usecase.CreateUser(r.Context(), args)
	if err != nil {
		writeUsecaseError(w, r, "CreateUser", err)
		return
	}
	writeJSON(w, http.StatusOK, resp.User)
}

// UpdateUser handles PATCH /users/{id}. The bearer token subject must be the target user.
func (u *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	subject, err := u.usecase.Authenticate(r.Header.Get("Authorization"))
	if err != nil {
		writeUsecaseError(w, r, "UpdateUser", err)
		return
	}
	var args model.UpdateUserArgs
	if !decodeBody(w, r, &args) {
		return
	}
	// an unparsable id can never match the subject
	args.ID, _ = parseUserID(pathParams["ref"])
	args.Subject = subject

	if err := u.usecase.UpdateUser(r.Context(), args); err != nil {
		writeUsecaseError(w, r, "UpdateUser", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetUser handles GET /users/{ref}, where ref is either a user id or a nickname.
func (u *UserHandler) GetUser(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	ref := pathParams["ref"]
	var (
		user *model.PublicUser
		err  error
	)
	if id, ok := parseUserID(ref); ok {
		user, err = u.usecase.GetUserByID(r.Context(), id)
	} else {
		user, err = u.usecase.GetUserByNickname(r.Context(), ref)
	}
	if err != nil {
		writeUsecaseError(w, r, "GetUser", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{id}.
func (u *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, ok := parseUserID(pathParams["ref"])
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := u.usecase.DeleteUser(r.Context(), id); err != nil {
		writeUsecaseError(w, r, "DeleteUser", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Login handles POST /auth/.
func (u *UserHandler) Login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var credentials model.Credentials
	if !decodeBody(w, r, &credentials) {
		return
	}
	resp, err := u.usecase.Login(r.Context(), credentials)
	if err != nil {
		writeUsecaseError(w, r, "Login", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseUserID accepts only the canonical hyphenated form, so 32-character hex nicknames are
// still looked up by nickname.
func parseUserID(ref string) (uuid.UUID, bool) {
	if len(ref) != 36 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes the JSON body into v. An empty body decodes as an empty object. It writes a
// 400 and returns false when the body is not valid JSON.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := jsonMarshaler.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		log.WithError(err).WithField("path", r.URL.Path).Debug("malformed request body")
		writeError(w, http.StatusBadRequest, msgMalformedBody)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := jsonMarshaler.Marshal(v)
	if err != nil {
		log.WithError(err).Error("error marshalling response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", jsonMarshaler.ContentType(v))
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.WithError(err).Warn("error writing response")
	}
}

// userServiceUsecase
type userServiceUsecase interface {
	// CreateUser creates a user.
	CreateUser(ctx context.Context, args model.CreateUserArgs) (*model.CreateUserResponse, error)

	// UpdateUser updates a user.
	UpdateUser(ctx context.Context, args model.UpdateUserArgs) error

	// GetUserByID fetches a user by id.
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.PublicUser, error)

	// GetUserByNickname fetches a user by nickname.
	GetUserByNickname(ctx context.Context, nickname string) (*model.PublicUser, error)

	// DeleteUser deletes a user.
	DeleteUser(ctx context.Context, id uuid.UUID) error

	// Login exchanges credentials for a token.
	Login(ctx context.Context, credentials model.Credentials) (*model.LoginResponse, error)

	// Authenticate returns the subject of a bearer token.
	Authenticate(token string) (uuid.UUID, error)
}
