// Package identity issues and recalls the stable opaque identifier that
// stands in for a browsing session. The identifier is a v4 UUID minted
// on first contact and persisted in a long-lived cookie; no account or
// server-side session backs it.
package identity

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/core"

	"match-ticketing/internal/status"
)

const (
	CookieName = "mtk_uid"
	contextKey = "identity"
	cookieTTL  = 365 * 24 * time.Hour
)

// Middleware ensures every request carries an identity: an existing
// valid cookie is reused, anything else gets a fresh identifier set on
// the response.
func Middleware() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := ""
		if cookie, err := e.Request.Cookie(CookieName); err == nil {
			if uuid.Validate(cookie.Value) == nil {
				id = cookie.Value
			}
		}

		if id == "" {
			id = uuid.NewString()
			http.SetCookie(e.Response, &http.Cookie{
				Name:     CookieName,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(cookieTTL),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		e.Set(contextKey, id)
		return e.Next()
	}
}

// FromEvent returns the request's identity, or ErrIdentityUnavailable
// when none could be established. Callers must treat that error as
// terminal for any operation requiring identity.
func FromEvent(e *core.RequestEvent) (string, error) {
	if id, ok := e.Get(contextKey).(string); ok && id != "" {
		return id, nil
	}
	return "", status.ErrIdentityUnavailable
}
