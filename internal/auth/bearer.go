package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidScheme        = errors.New("invalid authorization")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", ErrMissingAuthorization
	}
	scheme, token, found := strings.Cut(auth, " ")
	if !found || scheme != "Bearer" {
		return "", ErrInvalidScheme
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidScheme
	}
	return token, nil
}
