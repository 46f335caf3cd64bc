package api

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginLogoutFlow(t *testing.T) {
	env := newTestEnv(t)

	cookie := env.registerUser(t, "flow@example.com")
	require.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	// Session reflects the registered user.
	rec := env.do(t, http.MethodGet, "/api/auth/session", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flow@example.com")
	// Password material never leaves the server.
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	// Logout invalidates the session server-side.
	rec = env.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/session", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Fresh login works.
	body := fmt.Sprintf(`{"email":"flow@example.com","password":%q}`, testPassword)
	rec = env.do(t, http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(body)), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "dup@example.com")

	body := fmt.Sprintf(`{"email":"dup@example.com","name":"Again","password":%q}`, testPassword)
	rec := env.do(t, http.MethodPost, "/api/auth/register", bytes.NewReader([]byte(body)), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var apiErr APIError
	decodeJSON(t, rec, &apiErr)
	assert.Equal(t, "email_taken", apiErr.Code)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	body := `{"email":"weak@example.com","name":"Weak","password":"short"}`
	rec := env.do(t, http.MethodPost, "/api/auth/register", bytes.NewReader([]byte(body)), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr APIError
	decodeJSON(t, rec, &apiErr)
	assert.Equal(t, "weak_password", apiErr.Code)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "same@example.com")

	wrongPw := env.do(t, http.MethodPost, "/api/auth/login",
		bytes.NewReader([]byte(`{"email":"same@example.com","password":"wrong-password-here"}`)), nil)
	unknown := env.do(t, http.MethodPost, "/api/auth/login",
		bytes.NewReader([]byte(`{"email":"nobody@example.com","password":"wrong-password-here"}`)), nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)

	var a, b APIError
	decodeJSON(t, wrongPw, &a)
	decodeJSON(t, unknown, &b)
	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", a.Code)
}

func TestProtectedEndpointsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/documents", "/api/auth/session"} {
		rec := env.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
