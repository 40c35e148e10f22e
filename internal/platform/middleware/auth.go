package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/httputil"
	"admissio/pkg/requestcontext"
)

// Authenticator validates bearer tokens issued by the identity
// collaborator. Token issuance, roles, and MFA live outside this service;
// only the subject claim is consumed, to attribute applications, reviews,
// and administrative actions.
type Authenticator struct {
	signingKey []byte
}

func NewAuthenticator(signingKey string) *Authenticator {
	return &Authenticator{signingKey: []byte(signingKey)}
}

// Require rejects requests without a valid bearer token and injects the
// token subject into the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := a.subject(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithSubject(r.Context(), subject)))
	})
}

func (a *Authenticator) subject(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "authorization header required")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "bearer token required")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return a.signingKey, nil
	})
	if err != nil || !token.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token subject required")
	}
	return subject, nil
}
