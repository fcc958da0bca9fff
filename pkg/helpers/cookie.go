package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Session cookie names. The auth middleware reads AccessCookie.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Manager writes the HttpOnly session cookie pair.
type Manager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure}
}

func (m *Manager) set(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", m.Domain, m.Secure, true)
}

// SetPair stores both tokens; each cookie lives as long as its token.
func (m *Manager) SetPair(c *gin.Context, access string, aexp time.Time, refresh string, rexp time.Time) {
	m.set(c, AccessCookie, access, secondsUntil(aexp))
	m.set(c, RefreshCookie, refresh, secondsUntil(rexp))
}

// Clear expires both cookies.
func (m *Manager) Clear(c *gin.Context) {
	m.set(c, AccessCookie, "", -1)
	m.set(c, RefreshCookie, "", -1)
}

func secondsUntil(exp time.Time) int {
	return max(int(time.Until(exp).Seconds()), 0)
}
