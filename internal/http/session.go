package httpx

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/buildlog-app/buildlog/internal/domain"
)

const contextKeySession = "buildlog.session"

func (r *Router) setSessionCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     r.opts.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(r.auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (r *Router) expireSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     r.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// currentSession parses the session cookie without enforcing it.
func (r *Router) currentSession(c *gin.Context) (*domain.Session, bool) {
	if session, ok := sessionFromContext(c); ok {
		return session, true
	}
	token, err := c.Cookie(r.opts.CookieName)
	if err != nil || strings.TrimSpace(token) == "" {
		return nil, false
	}
	session, err := r.auth.Parse(token)
	if err != nil {
		r.logger.Warn("session validation failed", "error", err, "path", c.Request.URL.Path)
		return nil, false
	}
	c.Set(contextKeySession, session)
	return session, true
}

// requirePage redirects anonymous visitors to the login page.
func (r *Router) requirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := r.currentSession(c); !ok {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAPI rejects anonymous JSON callers with 401.
func (r *Router) requireAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := r.currentSession(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func sessionFromContext(c *gin.Context) (*domain.Session, bool) {
	value, ok := c.Get(contextKeySession)
	if !ok {
		return nil, false
	}
	session, ok := value.(*domain.Session)
	return session, ok && session != nil
}

// userID returns the signed-in user. Only call behind requirePage/requireAPI.
func userID(c *gin.Context) string {
	if session, ok := sessionFromContext(c); ok {
		return session.User.ID
	}
	return ""
}
