package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/ghaggin/citas/internal/config"
	"github.com/ghaggin/citas/internal/model"
)

const (
	flashKey    = "flash"
	returnToKey = "return_to"

	LoginPath   = "/login"
	LoadingPath = "/"
)

// SessionManager keeps short-lived browser state between redirects. It does
// not hold credentials; those live in the session store.
type SessionManager struct {
	impl *scs.SessionManager
}

func NewSessionManager(cfg *config.Config) (*SessionManager, error) {
	sm := &SessionManager{}
	sm.impl = scs.New()
	sm.impl.Lifetime = cfg.UI.FlashLifetime
	sm.impl.Cookie.Name = "citas_flash"
	sm.impl.Cookie.HttpOnly = true
	sm.impl.Cookie.SameSite = http.SameSiteLaxMode

	return sm, nil
}

func (s *SessionManager) Wrap(next http.Handler) http.Handler {
	return s.impl.LoadAndSave(next)
}

// Flash stores msg for the next page render.
func (s *SessionManager) Flash(ctx context.Context, msg string) {
	s.impl.Put(ctx, flashKey, msg)
}

// PopFlash returns and forgets the pending flash message.
func (s *SessionManager) PopFlash(ctx context.Context) string {
	return s.impl.PopString(ctx, flashKey)
}

// SetReturnTo remembers where to send the user after signing in.
func (s *SessionManager) SetReturnTo(ctx context.Context, path string) {
	s.impl.Put(ctx, returnToKey, path)
}

// PopReturnTo returns the remembered path, or fallback.
func (s *SessionManager) PopReturnTo(ctx context.Context, fallback string) string {
	if p := s.impl.PopString(ctx, returnToKey); p != "" {
		return p
	}
	return fallback
}

// StatusSource reports the app's session status. *session.Manager
// satisfies it.
type StatusSource interface {
	Status() model.Status
	IsAuthenticated() bool
}

// RequireAuth sends the browser to the loading page until the session has
// been restored, and to the login page when nobody is signed in. Must run
// inside Wrap.
func RequireAuth(src StatusSource, sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src.Status() == model.StatusUnknown {
				http.Redirect(w, r, LoadingPath, http.StatusSeeOther)
				return
			}

			if !src.IsAuthenticated() {
				sm.SetReturnTo(r.Context(), r.URL.RequestURI())
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
