package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/ticketdesk/ticketdesk/internal/adapters/primary/http/middleware"
	"github.com/ticketdesk/ticketdesk/internal/auth"
	"github.com/ticketdesk/ticketdesk/internal/core/domain"
	apperrors "github.com/ticketdesk/ticketdesk/internal/core/errors"
	"github.com/ticketdesk/ticketdesk/internal/core/mocks"
	"github.com/ticketdesk/ticketdesk/internal/core/ports"
)

func newAuthTestServer(service *mocks.MockAuthService, revoker *mocks.MockTokenRevoker) http.Handler {
	logger := slog.New(slog.DiscardHandler)
	tokenManager := auth.NewTokenManager("test-secret", time.Hour)

	// A typed nil must not reach the interface parameter, or the nil check
	// in the handler stops working.
	var rev ports.TokenRevoker
	if revoker != nil {
		rev = revoker
	}
	handler := NewAuthHandler(service, tokenManager, rev, NewErrorHandler(logger), logger)

	r := chi.NewRouter()
	handler.RegisterPublicRoutes(r)
	handler.RegisterProtectedRoutes(r)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("success always yields an ordinary user", func(t *testing.T) {
		user := &domain.User{ID: "u-1", Name: "Jordan", Email: "jordan@example.com", Role: domain.RoleUser}
		service := mocks.NewMockAuthService()
		service.On("Register", mock.Anything, mock.MatchedBy(func(params domain.UserRegistrationParams) bool {
			return params.Role == domain.RoleUser
		})).Return(user, nil)
		srv := newAuthTestServer(service, nil)

		body := []byte(`{"name":"Jordan","email":"jordan@example.com","password":"s3cret-pass"}`)
		rec := doRequest(srv, http.MethodPost, "/register", body, nil)

		require.Equal(t, http.StatusCreated, rec.Code)

		var got AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.NotEmpty(t, got.Token)
		assert.Equal(t, "user", got.User.Role)
		service.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		service := mocks.NewMockAuthService()
		service.On("Register", mock.Anything, mock.Anything).Return(nil, apperrors.ErrUserExists)
		srv := newAuthTestServer(service, nil)

		body := []byte(`{"name":"Jordan","email":"jordan@example.com","password":"s3cret-pass"}`)
		rec := doRequest(srv, http.MethodPost, "/register", body, nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("malformed email", func(t *testing.T) {
		service := mocks.NewMockAuthService()
		srv := newAuthTestServer(service, nil)

		body := []byte(`{"name":"Jordan","email":"not-an-email","password":"s3cret-pass"}`)
		rec := doRequest(srv, http.MethodPost, "/register", body, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		service.AssertNotCalled(t, "Register")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("success returns a verifiable token", func(t *testing.T) {
		user := &domain.User{ID: "u-1", Name: "Jordan", Email: "jordan@example.com", Role: domain.RoleAdmin}
		service := mocks.NewMockAuthService()
		service.On("Login", mock.Anything, "jordan@example.com", "s3cret-pass").Return(user, nil)
		srv := newAuthTestServer(service, nil)

		body := []byte(`{"email":"jordan@example.com","password":"s3cret-pass"}`)
		rec := doRequest(srv, http.MethodPost, "/login", body, nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var got AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

		claims, err := auth.NewTokenManager("test-secret", time.Hour).ValidateToken(got.Token)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.UserID)
		assert.Equal(t, domain.RoleAdmin, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		service := mocks.NewMockAuthService()
		service.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrInvalidCredentials)
		srv := newAuthTestServer(service, nil)

		body := []byte(`{"email":"jordan@example.com","password":"wrong"}`)
		rec := doRequest(srv, http.MethodPost, "/login", body, nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var got ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "INVALID_CREDENTIALS", got.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	claims := &auth.Claims{UserID: "u-1", Role: domain.RoleUser}

	t.Run("revokes the presented token", func(t *testing.T) {
		revoker := mocks.NewMockTokenRevoker()
		revoker.On("Revoke", mock.Anything, "the-raw-token", mock.Anything).Return(nil)
		srv := newAuthTestServer(mocks.NewMockAuthService(), revoker)

		rec := doRequest(srv, http.MethodPost, "/logout", nil, func(ctx context.Context) context.Context {
			ctx = context.WithValue(ctx, mw.UserClaimsKey, claims)
			return context.WithValue(ctx, mw.RawTokenKey, "the-raw-token")
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		revoker.AssertExpectations(t)
	})

	t.Run("succeeds without a revoker", func(t *testing.T) {
		srv := newAuthTestServer(mocks.NewMockAuthService(), nil)

		rec := doRequest(srv, http.MethodPost, "/logout", nil, func(ctx context.Context) context.Context {
			return context.WithValue(ctx, mw.UserClaimsKey, claims)
		})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("without claims", func(t *testing.T) {
		srv := newAuthTestServer(mocks.NewMockAuthService(), nil)

		rec := doRequest(srv, http.MethodPost, "/logout", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	srv := newAuthTestServer(mocks.NewMockAuthService(), nil)

	claims := &auth.Claims{UserID: "u-1", Name: "Jordan", Email: "jordan@example.com", Role: domain.RoleAdmin}
	rec := doRequest(srv, http.MethodGet, "/me", nil, func(ctx context.Context) context.Context {
		return context.WithValue(ctx, mw.UserClaimsKey, claims)
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var got UserDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "admin", got.Role)
}

// doRequest serves a request against the handler, optionally decorating the
// context the way upstream middleware would.
func doRequest(handler http.Handler, method, target string, body []byte, decorate func(context.Context) context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if decorate != nil {
		req = req.WithContext(decorate(req.Context()))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}
