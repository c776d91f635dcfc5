package middleware

import (
	"net/http"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/membertown/mt-allocation/internal/pkg/jwt"
	"github.com/membertown/mt-allocation/internal/pkg/session"
	"github.com/membertown/mt-allocation/pkg/response"
	"github.com/membertown/mt-allocation/pkg/status"
)

// SessionClaims is the payload carried inside the access token. The session
// id points at the authoritative copy in the session store.
type SessionClaims struct {
	SessionID string `json:"session_id"`
	gojwt.RegisteredClaims
}

// MemberSession verifies member access tokens and binds the member's account
// to the request context.
type MemberSession struct {
	jsonWebToken *jwt.JSONWebToken
	store        session.Store
}

func NewMemberSessionMiddleware(jsonWebToken *jwt.JSONWebToken, store session.Store) *MemberSession {
	return &MemberSession{
		jsonWebToken: jsonWebToken,
		store:        store,
	}
}

func (m *MemberSession) Verify(next http.HandlerFunc) http.HandlerFunc {
	return verify(m.jsonWebToken, m.store, session.RoleMember, next)
}

// AdminSession verifies back-office access tokens.
type AdminSession struct {
	jsonWebToken *jwt.JSONWebToken
	store        session.Store
}

func NewAdminSessionMiddleware(jsonWebToken *jwt.JSONWebToken, store session.Store) *AdminSession {
	return &AdminSession{
		jsonWebToken: jsonWebToken,
		store:        store,
	}
}

func (m *AdminSession) Verify(next http.HandlerFunc) http.HandlerFunc {
	return verify(m.jsonWebToken, m.store, session.RoleAdmin, next)
}

func verify(jsonWebToken *jwt.JSONWebToken, store session.Store, role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		bearer := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(bearer, "Bearer ")
		if !found {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "authorization bearer token is required",
			})
			return
		}

		claims := &SessionClaims{}
		if err := jsonWebToken.Parse(ctx, tokenString, claims); err != nil {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "invalid token",
			})
			return
		}

		acc, err := store.Get(ctx, claims.SessionID)
		if err != nil {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "session is expired or revoked",
			})
			return
		}

		if acc.Role != role {
			response.JSON(w, http.StatusForbidden, response.RESTEnvelope{
				Status:  status.FORBIDDEN,
				Message: "this resource is forbidden for the current role",
			})
			return
		}

		next(w, r.WithContext(session.ContextWithAccount(ctx, acc)))
	}
}
