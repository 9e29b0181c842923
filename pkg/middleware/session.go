package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionIDHeader carries the browser session ID for non-cookie clients
	SessionIDHeader = "X-Session-ID"
	// SessionIDKey is the context key for session ID
	SessionIDKey = "session_id"
)

// SessionConfig configures the session cookie
type SessionConfig struct {
	CookieName string
	Secure     bool
	MaxAge     time.Duration
}

// Session resolves the session ID from the header, then the cookie, else mints one.
// The resolved ID is echoed back in both the header and the cookie.
func Session(cfg SessionConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = "tour_session"
	}

	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionIDHeader)
		if sessionID == "" {
			if cookie, err := c.Cookie(cfg.CookieName); err == nil {
				sessionID = cookie
			}
		}
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.New().String()
		}

		c.Set(SessionIDKey, sessionID)
		c.Header(SessionIDHeader, sessionID)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, sessionID, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, true)

		c.Next()
	}
}

// GetSessionID returns the session ID from context
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
