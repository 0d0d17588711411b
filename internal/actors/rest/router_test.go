package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rbroggi/accountsvc/internal/actors/inmem"
	"github.com/rbroggi/accountsvc/internal/actors/password"
	"github.com/rbroggi/accountsvc/internal/actors/token"
	"github.com/rbroggi/accountsvc/internal/core/model"
	"github.com/rbroggi/accountsvc/internal/core/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type stubHealth struct {
	err error
}

func (s stubHealth) Check(context.Context) error { return s.err }

type RouterTestSuite struct {
	suite.Suite
	server *httptest.Server
	health *stubHealth
}

func (suite *RouterTestSuite) SetupTest() {
	hasher := password.NewArgon2idHasher(password.WithParams(&argon2id.Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	}))
	issuer, err := token.NewIssuer(token.IssuerArgs{Secret: []byte("test-secret"), TTL: time.Minute})
	suite.Require().NoError(err)
	svc := usecase.NewUserService(usecase.UserServiceArgs{
		Repository: inmem.NewMemoryDB(),
		Hasher:     hasher,
		Tokens:     issuer,
	})
	suite.health = &stubHealth{}
	router, err := NewRouter(RouterArgs{
		Users:  NewUserHandler(UserHandlerArgs{Usecase: svc}),
		Health: suite.health,
	})
	suite.Require().NoError(err)
	suite.server = httptest.NewServer(router)
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *RouterTestSuite) do(method, path string, body interface{}, headers map[string]string) (*http.Response, []byte) {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, suite.server.URL+path, reader)
	suite.Require().NoError(err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := suite.server.Client().Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	suite.Require().NoError(err)
	return resp, buf.Bytes()
}

func (suite *RouterTestSuite) requireError(resp *http.Response, body []byte, status int, message string) {
	suite.Require().Equal(status, resp.StatusCode, string(body))
	var got errorBody
	suite.Require().NoError(json.Unmarshal(body, &got))
	suite.Equal(status, got.Status)
	if message != "" {
		suite.Equal(message, got.Message)
	}
}

func (suite *RouterTestSuite) createUser(nickname, email string) model.PublicUser {
	resp, body := suite.do(http.MethodPost, "/users/", map[string]string{
		"name": "Jane", "nickname": nickname, "email": email, "password": "s3cretpass",
	}, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var user model.PublicUser
	suite.Require().NoError(json.Unmarshal(body, &user))
	return user
}

func (suite *RouterTestSuite) login(email string) string {
	resp, body := suite.do(http.MethodPost, "/auth/", map[string]string{"email": email, "password": "s3cretpass"}, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var got model.LoginResponse
	suite.Require().NoError(json.Unmarshal(body, &got))
	suite.Require().NotEmpty(got.Token)
	return got.Token
}

func (suite *RouterTestSuite) TestCreateUser() {
	resp, body := suite.do(http.MethodPost, "/users/", map[string]string{
		"nickname": "jane_doe", "email": "jane@example.com", "password": "s3cretpass", "bio": "hi",
	}, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	suite.Equal("application/json", resp.Header.Get("Content-Type"))

	var raw map[string]interface{}
	suite.Require().NoError(json.Unmarshal(body, &raw))
	suite.Equal("jane_doe", raw["nickname"])
	suite.Equal("hi", raw["bio"])
	suite.Contains(raw, "id")
	suite.Contains(raw, "creationTime")
	suite.NotContains(raw, "password")
	suite.NotContains(raw, "passwordHash")
	suite.NotContains(raw, "updateTime")

	resp, body = suite.do(http.MethodPost, "/users", map[string]string{
		"nickname": "jane_doe", "email": "other@example.com", "password": "s3cretpass",
	}, nil)
	suite.requireError(resp, body, http.StatusConflict, "This nickname is already in use")

	resp, body = suite.do(http.MethodPost, "/users/", map[string]string{
		"nickname": "other", "email": "jane@example.com", "password": "s3cretpass",
	}, nil)
	suite.requireError(resp, body, http.StatusConflict, "This email is already in use")
}

func (suite *RouterTestSuite) TestCreateUserBadRequests() {
	resp, body := suite.do(http.MethodPost, "/users/", map[string]string{"nickname": "bad nick", "email": "x", "password": "short"}, nil)
	suite.requireError(resp, body, http.StatusBadRequest, "The following fields contain validation errors: email,nickname,password")

	resp, body = suite.do(http.MethodPost, "/users/", "{not json", nil)
	suite.requireError(resp, body, http.StatusBadRequest, msgMalformedBody)
}

func (suite *RouterTestSuite) TestGetUser() {
	user := suite.createUser("jane_doe", "jane@example.com")

	for _, path := range []string{"/users/" + user.ID.String(), "/users/jane_doe", "/users/jane_doe/"} {
		resp, body := suite.do(http.MethodGet, path, nil, nil)
		suite.Require().Equal(http.StatusOK, resp.StatusCode, path)
		var got model.PublicUser
		suite.Require().NoError(json.Unmarshal(body, &got))
		suite.Equal(user.ID, got.ID, path)
		suite.Equal("jane@example.com", got.Email, path)
	}

	resp, body := suite.do(http.MethodGet, "/users/"+uuid.NewString(), nil, nil)
	suite.requireError(resp, body, http.StatusNotFound, msgNotFound)
	resp, body = suite.do(http.MethodGet, "/users/nobody", nil, nil)
	suite.requireError(resp, body, http.StatusNotFound, msgNotFound)
}

func (suite *RouterTestSuite) TestUpdateUser() {
	user := suite.createUser("jane_doe", "jane@example.com")
	suite.createUser("john", "john@example.com")
	tok := suite.login("jane@example.com")
	path := "/users/" + user.ID.String()

	resp, body := suite.do(http.MethodPatch, path, map[string]string{"bio": "updated"}, map[string]string{"Authorization": tok})
	suite.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	suite.Empty(body)

	resp, body = suite.do(http.MethodGet, path, nil, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	var got model.PublicUser
	suite.Require().NoError(json.Unmarshal(body, &got))
	suite.Equal("updated", got.Bio)
	suite.Equal("Jane", got.Name)
	suite.Require().NotNil(got.UpdateTime)

	resp, body = suite.do(http.MethodPatch, path, map[string]string{"nickname": "john"}, map[string]string{"Authorization": "Bearer " + tok})
	suite.requireError(resp, body, http.StatusConflict, "This nickname is already in use")

	resp, body = suite.do(http.MethodPatch, path, map[string]string{"name": "x"}, map[string]string{"Authorization": tok})
	suite.requireError(resp, body, http.StatusBadRequest, "The following fields contain validation errors: name")
}

func (suite *RouterTestSuite) TestUpdateUserUnauthorized() {
	user := suite.createUser("jane_doe", "jane@example.com")
	suite.createUser("john", "john@example.com")
	foreign := suite.login("john@example.com")
	path := "/users/" + user.ID.String()

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "missing token"},
		{name: "garbage token", headers: map[string]string{"Authorization": "garbage"}},
		{name: "foreign subject", headers: map[string]string{"Authorization": foreign}},
	}
	for _, test := range tests {
		suite.Run(test.name, func() {
			resp, body := suite.do(http.MethodPatch, path, map[string]string{"bio": "hijacked"}, test.headers)
			suite.requireError(resp, body, http.StatusUnauthorized, msgUnauthorized)
		})
	}

	resp, body := suite.do(http.MethodGet, path, nil, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	var got model.PublicUser
	suite.Require().NoError(json.Unmarshal(body, &got))
	suite.Empty(got.Bio)
	suite.Nil(got.UpdateTime)
}

func (suite *RouterTestSuite) TestDeleteUser() {
	user := suite.createUser("jane_doe", "jane@example.com")
	path := "/users/" + user.ID.String()

	resp, _ := suite.do(http.MethodDelete, path, nil, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body := suite.do(http.MethodGet, path, nil, nil)
	suite.requireError(resp, body, http.StatusNotFound, msgNotFound)
	resp, body = suite.do(http.MethodDelete, path, nil, nil)
	suite.requireError(resp, body, http.StatusNotFound, msgNotFound)
	resp, body = suite.do(http.MethodDelete, "/users/jane_doe", nil, nil)
	suite.requireError(resp, body, http.StatusNotFound, msgNotFound)
}

func (suite *RouterTestSuite) TestLogin() {
	suite.createUser("jane_doe", "jane@example.com")
	suite.login("jane@example.com")

	resp, body := suite.do(http.MethodPost, "/auth/", map[string]string{"email": "jane@example.com", "password": "wrongpassword"}, nil)
	suite.requireError(resp, body, http.StatusUnauthorized, msgInvalidCredentials)

	resp, body = suite.do(http.MethodPost, "/auth/", map[string]string{"email": "nobody@example.com", "password": "s3cretpass"}, nil)
	suite.requireError(resp, body, http.StatusUnauthorized, msgInvalidCredentials)

	resp, body = suite.do(http.MethodPost, "/auth/", map[string]string{"email": "jane@example.com"}, nil)
	suite.requireError(resp, body, http.StatusBadRequest, "The following fields contain validation errors: password")
}

func (suite *RouterTestSuite) TestRoutingErrors() {
	resp, body := suite.do(http.MethodGet, "/unknown", nil, nil)
	suite.requireError(resp, body, http.StatusNotFound, msgNotFound)

	resp, body = suite.do(http.MethodPut, "/users/jane_doe", nil, nil)
	suite.requireError(resp, body, http.StatusMethodNotAllowed, "")
}

func (suite *RouterTestSuite) TestHealthz() {
	resp, body := suite.do(http.MethodGet, "/healthz", nil, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	suite.JSONEq(`{"status":"ok"}`, string(body))

	suite.health.err = errors.New("store down")
	resp, body = suite.do(http.MethodGet, "/healthz", nil, nil)
	suite.requireError(resp, body, http.StatusServiceUnavailable, "")
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{err: &model.ValidationError{Fields: []string{"email"}}, status: http.StatusBadRequest, message: "The following fields contain validation errors: email"},
		{err: model.NewConflictError(model.ConflictEmail), status: http.StatusConflict, message: "This email is already in use"},
		{err: model.ErrNotFound, status: http.StatusNotFound, message: msgNotFound},
		{err: model.ErrUnauthorized, status: http.StatusUnauthorized, message: msgUnauthorized},
		{err: model.ErrInvalidCredentials, status: http.StatusUnauthorized, message: msgInvalidCredentials},
		{err: errors.New("pq: connection refused"), status: http.StatusInternalServerError, message: msgInternal},
	}
	for _, test := range tests {
		status, message := statusFromError(test.err)
		assert.Equal(t, test.status, status, test.err.Error())
		assert.Equal(t, test.message, message, test.err.Error())
	}
}

func TestParseUserID(t *testing.T) {
	id := uuid.New()
	got, ok := parseUserID(id.String())
	require.True(t, ok)
	assert.Equal(t, id, got)

	for _, ref := range []string{"jane_doe", "", "3b3e9e2a13d54a68b5c58e60a5b5d5de"} {
		_, ok := parseUserID(ref)
		assert.False(t, ok, ref)
	}
}
