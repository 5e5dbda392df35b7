package httpx

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/repository"
	"github.com/buildlog-app/buildlog/internal/service/buildlog"
	"github.com/buildlog-app/buildlog/internal/service/export"
	"github.com/buildlog-app/buildlog/internal/service/project"
)

func templateFuncs(loc *time.Location) template.FuncMap {
	local := func(t time.Time) time.Time {
		if loc == nil {
			return t
		}
		return t.In(loc)
	}
	return template.FuncMap{
		"markdown": renderMarkdown,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return local(t).Format("Jan 02, 2006")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return local(t).Format(export.TimeLayout)
		},
		"join":  strings.Join,
		"label": humanize,
		"fileURL": func(ref string) string {
			if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
				return ref
			}
			return "/files/" + url.PathEscape(ref)
		},
		"statuses": domain.ProjectStatuses,
		"logTypes": domain.LogTypes,
	}
}

// renderMarkdown converts user content to HTML. Raw HTML in the source is
// dropped by the renderer so the result is safe to embed.
func renderMarkdown(src string) template.HTML {
	out, err := export.HTML(src)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(out)
}

// humanize turns identifiers such as "bug_fix" into "Bug Fix".
func humanize(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case domain.LogType:
		s = string(t)
	case domain.ProjectStatus:
		s = string(t)
	}
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(first)) + w[size:]
	}
	return strings.Join(words, " ")
}

func (r *Router) render(c *gin.Context, status int, tpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = flashFromRequest(c)
	}
	if session, ok := r.currentSession(c); ok {
		data["User"] = session.User
	}
	data["AIEnabled"] = r.ai.Enabled()
	c.HTML(status, tpl, data)
}

func (r *Router) renderError(c *gin.Context, status int, message string) {
	r.logger.Warn("page error", "status", status, "message", message, "path", c.Request.URL.Path)
	r.render(c, status, "error", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
}

func flashFromRequest(c *gin.Context) string {
	return strings.TrimSpace(c.Query("flash"))
}

func redirectWithFlash(c *gin.Context, target, message string) {
	if strings.TrimSpace(target) == "" {
		target = "/"
	}
	if strings.TrimSpace(message) == "" {
		c.Redirect(http.StatusSeeOther, target)
		return
	}
	u, err := url.Parse(target)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	q := u.Query()
	q.Set("flash", message)
	u.RawQuery = q.Encode()
	c.Redirect(http.StatusSeeOther, u.String())
}

func upstreamContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), upstreamTimeout)
}

func isMissing(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, project.ErrForbidden) ||
		errors.Is(err, buildlog.ErrWrongProject)
}

// loadProject fetches the :id project for the signed-in user, writing a 404
// or 500 page on failure.
func (r *Router) loadProject(ctx context.Context, c *gin.Context) (*domain.Project, bool) {
	p, err := r.projects.GetOwned(ctx, userID(c), c.Param("id"))
	if err != nil {
		if isMissing(err) {
			r.renderError(c, http.StatusNotFound, "Project not found")
			return nil, false
		}
		r.logger.Error("project load failed", "project_id", c.Param("id"), "error", err)
		r.renderError(c, http.StatusInternalServerError, "Failed to load project")
		return nil, false
	}
	return p, true
}

func projectPath(id string) string {
	return "/projects/" + url.PathEscape(id)
}
