// Package auth decides whether a caller may mutate the catalog.
// The decision is a predicate over a bearer token; how tokens are minted is out of scope.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthorized means the token is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the token is valid but the caller is not an admin.
	ErrForbidden = errors.New("forbidden")
)

// Principal identifies an authorized caller.
type Principal struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
}

// Authorizer verifies a bearer token and reports the admin principal behind it.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (Principal, error)
}

// allowlist admits every verified caller when empty, otherwise only listed emails (case-insensitive).
type allowlist []string

func newAllowlist(emails []string) allowlist {
	out := make(allowlist, 0, len(emails))
	for _, e := range emails {
		out = append(out, strings.ToLower(strings.TrimSpace(e)))
	}
	return out
}

func (a allowlist) admit(p Principal) (Principal, error) {
	if len(a) == 0 || slices.Contains(a, strings.ToLower(p.Email)) {
		return p, nil
	}
	return Principal{}, fmt.Errorf("%w: %s is not an admin", ErrForbidden, p.Email)
}

// IDTokenVerifier is the part of the Firebase auth client used here.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// Firebase authorizes Firebase Authentication ID tokens.
type Firebase struct {
	verifier IDTokenVerifier
	admins   allowlist
}

func NewFirebase(verifier IDTokenVerifier, adminEmails []string) *Firebase {
	return &Firebase{verifier: verifier, admins: newAllowlist(adminEmails)}
}

func (f *Firebase) Authorize(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthorized
	}
	decoded, err := f.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	email, _ := decoded.Claims["email"].(string)
	return f.admins.admit(Principal{Subject: decoded.UID, Email: email})
}

// Claims are the JWT claims issued for admins.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWT authorizes HS256 tokens signed with a shared secret.
type JWT struct {
	secret []byte
	admins allowlist
}

func NewJWT(secret string, adminEmails []string) *JWT {
	return &JWT{secret: []byte(secret), admins: newAllowlist(adminEmails)}
}

func (j *JWT) Authorize(_ context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthorized
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return j.admins.admit(Principal{Subject: claims.Subject, Email: claims.Email})
}

// Issue signs an admin token for email valid for ttl.
func (j *JWT) Issue(email string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// AllowAll admits every caller. Used when AUTH_MODE=none.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, string) (Principal, error) {
	return Principal{Subject: "anonymous"}, nil
}
