package authhttp

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/acme/acme-auth/pkg/env"
)

const CookiePrefix = "app"

const (
	SessionCookie             = CookiePrefix + ".session_token"
	OAuthStateCookie          = CookiePrefix + ".oauth_state"
	PendingVerificationCookie = CookiePrefix + ".pending_verification"
	FlashCookie               = CookiePrefix + ".flash"

	oauthStateTTL  = 10 * time.Minute
	pendingTTL     = 30 * time.Minute
	oauthStateSubj = "oauth_state"
)

var ErrNoSessionCookie = errors.New("no session cookie")

// Cookies reads and writes every cookie the auth ports use.
// The OAuth state cookie is an HS256 token so it cannot be forged by the browser.
type Cookies struct {
	domain string
	secure bool
	secret []byte
}

type CookiesArgs struct {
	Domain string
	Mode   env.Mode
	Secret []byte
}

func NewCookies(args CookiesArgs) *Cookies {
	if len(args.Secret) == 0 {
		panic("secret is required for cookies")
	}
	return &Cookies{
		domain: args.Domain,
		secure: args.Mode.SecureCookies(),
		secret: args.Secret,
	}
}

func (c *Cookies) set(w http.ResponseWriter, name, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Cookies) SetSession(w http.ResponseWriter, token string, expiresAt time.Time) {
	c.set(w, SessionCookie, token, expiresAt)
}

func (c *Cookies) ClearSession(w http.ResponseWriter) {
	c.clear(w, SessionCookie)
}

// SessionToken reads the session cookie, falling back to an Authorization bearer token.
func SessionToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return strings.TrimSpace(token), nil
	}
	return "", ErrNoSessionCookie
}

// PendingVerification remembers which address is waiting for its code and
// when the code was requested.
type PendingVerification struct {
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requested_at"`
}

func (c *Cookies) SetPending(w http.ResponseWriter, email string) {
	raw, err := json.Marshal(PendingVerification{Email: email, RequestedAt: time.Now().UTC()})
	if err != nil {
		return
	}
	c.set(w, PendingVerificationCookie, encode(string(raw)), time.Now().Add(pendingTTL))
}

// PendingVerification reports false when the cookie is missing or unreadable.
func (c *Cookies) PendingVerification(r *http.Request) (PendingVerification, bool) {
	cookie, err := r.Cookie(PendingVerificationCookie)
	if err != nil {
		return PendingVerification{}, false
	}

	var p PendingVerification
	if err := json.Unmarshal([]byte(decode(cookie.Value)), &p); err != nil || p.Email == "" {
		return PendingVerification{}, false
	}
	return p, true
}

// Pending returns the email waiting for verification, or "".
func (c *Cookies) Pending(r *http.Request) string {
	p, _ := c.PendingVerification(r)
	return p.Email
}

func (c *Cookies) ClearPending(w http.ResponseWriter) {
	c.clear(w, PendingVerificationCookie)
}

// SetFlash stores a message shown once by the next rendered page.
func (c *Cookies) SetFlash(w http.ResponseWriter, message string) {
	c.set(w, FlashCookie, encode(message), time.Now().Add(time.Minute))
}

// PopFlash returns the pending flash message and clears it.
func (c *Cookies) PopFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(FlashCookie)
	if err != nil {
		return ""
	}
	c.clear(w, FlashCookie)
	return decode(cookie.Value)
}

// OAuthState is what the callback needs to finish a social sign-in started by this browser.
type OAuthState struct {
	State       string
	Verifier    string
	CallbackURL string
}

type oauthStateClaims struct {
	jwt.RegisteredClaims
	State       string `json:"state"`
	Verifier    string `json:"verifier"`
	CallbackURL string `json:"callback_url"`
}

func (c *Cookies) SetOAuthState(w http.ResponseWriter, s OAuthState) error {
	expiresAt := time.Now().Add(oauthStateTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, oauthStateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   oauthStateSubj,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		State:       s.State,
		Verifier:    s.Verifier,
		CallbackURL: s.CallbackURL,
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return err
	}

	c.set(w, OAuthStateCookie, signed, expiresAt)
	return nil
}

func (c *Cookies) OAuthState(r *http.Request) (OAuthState, error) {
	cookie, err := r.Cookie(OAuthStateCookie)
	if err != nil {
		return OAuthState{}, err
	}

	var claims oauthStateClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(oauthStateSubj),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return OAuthState{}, err
	}

	return OAuthState{
		State:       claims.State,
		Verifier:    claims.Verifier,
		CallbackURL: claims.CallbackURL,
	}, nil
}

func (c *Cookies) ClearOAuthState(w http.ResponseWriter) {
	c.clear(w, OAuthStateCookie)
}

func encode(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func decode(s string) string {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	return string(b)
}
