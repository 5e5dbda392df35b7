package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/service/auth"
)

func (r *Router) handleIndex(c *gin.Context) {
	if _, ok := r.currentSession(c); ok {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	r.render(c, http.StatusOK, "index", gin.H{"Title": "BuildLog - Document Your Journey"})
}

func (r *Router) handleLoginForm(c *gin.Context) {
	if _, ok := r.currentSession(c); ok {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	r.render(c, http.StatusOK, "login", gin.H{"Title": "Sign in"})
}

func (r *Router) handleLogin(c *gin.Context) {
	email := c.PostForm("email")
	ctx, cancel := upstreamContext(c)
	defer cancel()

	session, err := r.auth.Login(ctx, email, c.PostForm("password"))
	if err != nil {
		status := http.StatusInternalServerError
		message := "Sign in failed, please try again"
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			status, message = http.StatusUnauthorized, "Invalid email or password"
		case errors.Is(err, auth.ErrInvalidEmail):
			status, message = http.StatusUnprocessableEntity, err.Error()
		default:
			r.logger.Error("login failed", "error", err)
		}
		r.render(c, status, "login", gin.H{"Title": "Sign in", "Error": message, "Email": email})
		return
	}
	r.startSession(c, *session, "login")
}

func (r *Router) handleRegisterForm(c *gin.Context) {
	r.render(c, http.StatusOK, "register", gin.H{"Title": "Create account"})
}

func (r *Router) handleRegister(c *gin.Context) {
	name := c.PostForm("name")
	email := c.PostForm("email")
	ctx, cancel := upstreamContext(c)
	defer cancel()

	session, err := r.auth.Register(ctx, name, email, c.PostForm("password"))
	if err != nil {
		status := http.StatusInternalServerError
		message := "Registration failed, please try again"
		switch {
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			status, message = http.StatusUnprocessableEntity, err.Error()
		case errors.Is(err, auth.ErrEmailTaken):
			status, message = http.StatusConflict, err.Error()
		default:
			r.logger.Error("registration failed", "error", err)
		}
		r.render(c, status, "register", gin.H{"Title": "Create account", "Error": message, "Name": name, "Email": email})
		return
	}
	r.startSession(c, *session, "register")
}

func (r *Router) startSession(c *gin.Context, session domain.Session, tpl string) {
	token, err := r.auth.Issue(session)
	if err != nil {
		r.logger.Error("session issuance failed", "error", err)
		r.render(c, http.StatusInternalServerError, tpl, gin.H{"Error": "Session issuance failed"})
		return
	}
	r.setSessionCookie(c, token)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (r *Router) handleLogout(c *gin.Context) {
	if session, ok := r.currentSession(c); ok {
		ctx, cancel := upstreamContext(c)
		defer cancel()
		r.auth.Logout(ctx, session.Secret)
	}
	r.expireSessionCookie(c)
	redirectWithFlash(c, "/login", "Signed out")
}
