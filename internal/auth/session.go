package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"kioskboard/internal/utils"
)

var (
	// ErrInvalidPIN is returned when the submitted staff PIN does not match.
	ErrInvalidPIN = errors.New("invalid staff PIN")
	// ErrPINTooShort is returned by HashPIN for PINs under MinPINLength digits.
	ErrPINTooShort = errors.New("staff PIN is too short")
)

const (
	sessionName  = "kiosk-staff"
	MinPINLength = 4
	// LoginPath is where unauthenticated staff are sent.
	LoginPath = "/staff/login"
)

// Auth guards the kitchen board behind a staff PIN. With no PIN hash
// configured every request is let through.
type Auth struct {
	pinHash []byte
	store   sessions.Store
	maxAge  time.Duration
	log     *utils.Logger
}

// New creates an Auth. sessionKey is a hex string; when empty a random key is
// generated, which logs staff out whenever the process restarts.
func New(pinHash, sessionKey string, log *utils.Logger) (*Auth, error) {
	if log == nil {
		log = utils.NewNopLogger()
	}
	a := &Auth{maxAge: 12 * time.Hour, log: log.WithFields(map[string]any{"component": "auth"})}
	if pinHash == "" {
		return a, nil
	}
	if _, err := bcrypt.Cost([]byte(pinHash)); err != nil {
		return nil, fmt.Errorf("staff PIN hash: %w", err)
	}
	a.pinHash = []byte(pinHash)

	var key []byte
	if sessionKey != "" {
		k, err := hex.DecodeString(sessionKey)
		if err != nil {
			return nil, fmt.Errorf("session key must be hex: %w", err)
		}
		key = k
	} else {
		key = securecookie.GenerateRandomKey(32)
		a.log.Warn("no session key configured, generated a temporary one")
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(a.maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	a.store = store
	return a, nil
}

// Enabled reports whether a staff PIN is required.
func (a *Auth) Enabled() bool {
	return len(a.pinHash) > 0
}

// Login checks pin and, on a match, starts a staff session.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request, pin string) error {
	if !a.Enabled() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(a.pinHash, []byte(pin)); err != nil {
		a.log.WithFields(map[string]any{"remote": r.RemoteAddr}).Warn("staff login rejected")
		return ErrInvalidPIN
	}
	session, err := a.store.New(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values["authenticated"] = true
	session.Values["since"] = time.Now().Unix()
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	a.log.WithFields(map[string]any{"remote": r.RemoteAddr}).Info("staff logged in")
	return nil
}

// Logout ends the staff session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) error {
	if !a.Enabled() {
		return nil
	}
	session, _ := a.store.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// IsAuthenticated checks the staff session cookie.
func (a *Auth) IsAuthenticated(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	session, err := a.store.Get(r, sessionName)
	if err != nil {
		return false
	}
	authenticated, ok := session.Values["authenticated"].(bool)
	return ok && authenticated
}

// Middleware sends unauthenticated requests to the login page, remembering
// where they were headed.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.IsAuthenticated(r) {
			target := LoginPath
			if r.Method == http.MethodGet {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SafeNext returns next if it is a local path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

// HashPIN returns the bcrypt hash stored in the staff PIN setting.
func HashPIN(pin string) (string, error) {
	if len(strings.TrimSpace(pin)) < MinPINLength {
		return "", ErrPINTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
