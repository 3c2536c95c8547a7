// Package auth validates bearer credentials and resolves them to users.
// The websocket handshake and the REST middleware both go through Verifier.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chamber/internal/model"
)

var (
	ErrNoCredentials = errors.New("auth: no credentials")
	ErrInvalidToken  = errors.New("auth: invalid token")
)

// UserSource resolves a token's user_id claim to an actual user.
type UserSource interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	users  UserSource
}

func NewVerifier(secret string, users UserSource) *Verifier {
	return &Verifier{secret: []byte(secret), users: users}
}

// Validate parses an HS256 token and resolves the user it names.
func (v *Verifier) Validate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrNoCredentials
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	user, err := v.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Authenticate extracts the credential from the request and validates it.
// Browsers cannot set headers on websocket dials, so ?token= is accepted as
// a fallback to the Authorization header.
func (v *Verifier) Authenticate(r *http.Request) (*model.User, error) {
	token := BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return v.Validate(r.Context(), token)
}

// BearerToken returns the token portion of an "Authorization: Bearer ..."
// header, or "" when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Sign issues a token for a user id. Token issuance belongs to an external
// auth service in production; this is used by tests and the -dev seed flow.
func (v *Verifier) Sign(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userID})
	return token.SignedString(v.secret)
}
