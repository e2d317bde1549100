/*
auth.go - Request identity

PURPOSE:
  Every /api route acts on behalf of one user. The user comes from an
  HS256 bearer token whose user_id claim names them; the handlers only
  ever see the resulting ledger.UserID through UserFrom.

  With DevHeader enabled, a request may instead carry X-User-ID. That path
  exists for local testing with curl and must stay off in production.

TOKENS:
  Claims are {user_id, iss, iat, exp}. IssueToken mints one; cmd/token
  wraps it for the command line.
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/wallet-engine/ledger"
)

const DevUserHeader = "X-User-ID"

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer tokens.
type Authenticator struct {
	Secret    []byte
	Issuer    string
	DevHeader bool
}

// IssueToken signs a token for user that expires after ttl.
func (a *Authenticator) IssueToken(user ledger.UserID, ttl time.Duration, now time.Time) (string, error) {
	if user == "" {
		return "", errors.New("user id required")
	}
	if len(a.Secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	claims := &Claims{
		UserID: string(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// ParseToken verifies signature, expiry and issuer and returns the user.
func (a *Authenticator) ParseToken(token string) (ledger.UserID, error) {
	if len(a.Secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.Issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return a.Secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.UserID == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return ledger.UserID(claims.UserID), nil
}

// Middleware rejects requests without a valid identity with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.DevHeader {
			if user := strings.TrimSpace(r.Header.Get(DevUserHeader)); user != "" {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), ledger.UserID(user))))
				return
			}
		}

		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}
		user, err := a.ParseToken(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

type ctxKey struct{}

func WithUser(ctx context.Context, user ledger.UserID) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFrom returns the authenticated user, or "" outside the middleware.
func UserFrom(ctx context.Context) ledger.UserID {
	user, _ := ctx.Value(ctxKey{}).(ledger.UserID)
	return user
}
