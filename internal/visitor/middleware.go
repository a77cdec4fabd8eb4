// Package visitor gives every browser an anonymous identity and guards
// state-changing requests with a double-submit CSRF token.
package visitor

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	DefaultCookieName     = "rr_visitor"
	DefaultCSRFCookieName = "rr_csrf"
	DefaultCSRFHeaderName = "X-CSRF-Token"
	CSRFFormField         = "csrf_token"

	visitorIDContextKey = "visitor_id"
	csrfTokenContextKey = "visitor_csrf"
)

type Identity struct {
	cookieName     string
	csrfCookieName string
	csrfHeaderName string
	ttl            time.Duration
	secure         bool
}

func NewIdentity(ttl time.Duration, secure bool) *Identity {
	return &Identity{
		cookieName:     DefaultCookieName,
		csrfCookieName: DefaultCSRFCookieName,
		csrfHeaderName: DefaultCSRFHeaderName,
		ttl:            ttl,
		secure:         secure,
	}
}

func (i *Identity) CookieName() string     { return i.cookieName }
func (i *Identity) CSRFCookieName() string { return i.csrfCookieName }
func (i *Identity) CSRFHeaderName() string { return i.csrfHeaderName }

// Middleware makes sure the request carries a visitor id and a CSRF token,
// issuing fresh cookies when either is missing or malformed.
func (i *Identity) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		visitorID := ""
		if v, err := c.Cookie(i.cookieName); err == nil {
			if id, err := uuid.Parse(v); err == nil {
				visitorID = id.String()
			}
		}
		if visitorID == "" {
			visitorID = uuid.NewString()
			i.setCookie(c, i.cookieName, visitorID, true, http.SameSiteLaxMode)
		}

		csrfToken, err := c.Cookie(i.csrfCookieName)
		if err != nil || !validToken(csrfToken) {
			csrfToken, err = generateToken()
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not issue session"})
				return
			}
			i.setCookie(c, i.csrfCookieName, csrfToken, false, http.SameSiteStrictMode)
		}

		c.Set(visitorIDContextKey, visitorID)
		c.Set(csrfTokenContextKey, csrfToken)
		c.Next()
	}
}

func (i *Identity) setCookie(c *gin.Context, name, value string, httpOnly bool, sameSite http.SameSite) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   int(i.ttl.Seconds()),
		Path:     "/",
		Secure:   i.secure,
		HttpOnly: httpOnly,
		SameSite: sameSite,
	})
}

// IDFromContext returns the visitor id stored by Middleware.
func IDFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(visitorIDContextKey)
	if !ok {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}

// CSRFTokenFromContext returns the token forms must echo back.
func CSRFTokenFromContext(c *gin.Context) string {
	val, _ := c.Get(csrfTokenContextKey)
	token, _ := val.(string)
	return token
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func validToken(token string) bool {
	if len(token) != 64 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil && strings.ToLower(token) == token
}
