package httpx

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/service/buildlog"
	"github.com/buildlog-app/buildlog/internal/service/project"
	"github.com/buildlog-app/buildlog/internal/ws"
)

type logForm struct {
	Title    string
	Content  string
	LogType  string
	Tags     string
	Images   string
	Snippets []domain.CodeSnippet
	Links    []domain.Link
}

// readLogForm collects repeated snippet_language/snippet_code and
// link_title/link_url fields pairwise.
func readLogForm(c *gin.Context) logForm {
	form := logForm{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
		LogType: c.PostForm("log_type"),
		Tags:    c.PostForm("tags"),
		Images:  c.PostForm("images"),
	}
	langs := c.PostFormArray("snippet_language")
	for i, code := range c.PostFormArray("snippet_code") {
		snippet := domain.CodeSnippet{Code: code}
		if i < len(langs) {
			snippet.Language = langs[i]
		}
		form.Snippets = append(form.Snippets, snippet)
	}
	titles := c.PostFormArray("link_title")
	for i, u := range c.PostFormArray("link_url") {
		link := domain.Link{URL: u}
		if i < len(titles) {
			link.Title = titles[i]
		}
		form.Links = append(form.Links, link)
	}
	return form
}

func formFromLog(entry domain.BuildLog) logForm {
	return logForm{
		Title:    entry.Title,
		Content:  entry.Content,
		LogType:  string(entry.LogType),
		Tags:     strings.Join(entry.Tags, ", "),
		Images:   strings.Join(entry.Images, ", "),
		Snippets: entry.CodeSnippets,
		Links:    entry.Links,
	}
}

func (r *Router) renderLogForm(c *gin.Context, status int, p *domain.Project, entry *domain.BuildLog, form logForm, errMsg string) {
	title := "New Build Log"
	if entry != nil {
		title = "Edit " + entry.Title
	}
	data := gin.H{
		"Title":   title,
		"Project": p,
		"Log":     entry,
		"Form":    form,
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	r.render(c, status, "log_form", data)
}

func (r *Router) handleLogNewForm(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	r.renderLogForm(c, http.StatusOK, p, nil, logForm{LogType: string(domain.LogUpdate)}, "")
}

func (r *Router) handleLogCreate(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	form := readLogForm(c)
	_, err := r.logs.Create(ctx, buildlog.CreateInput{
		ProjectID:    p.ID,
		Title:        form.Title,
		Content:      form.Content,
		LogType:      domain.LogType(form.LogType),
		Tags:         project.SplitList(form.Tags),
		CodeSnippets: form.Snippets,
		Images:       project.SplitList(form.Images),
		Links:        form.Links,
	})
	if err != nil {
		if buildlog.IsValidation(err) {
			r.renderLogForm(c, http.StatusUnprocessableEntity, p, nil, form, err.Error())
			return
		}
		r.renderError(c, http.StatusInternalServerError, "Failed to create build log")
		return
	}
	redirectWithFlash(c, projectPath(p.ID), "Build log added")
}

// loadLog resolves :logID within an already loaded project.
func (r *Router) loadLog(c *gin.Context, p *domain.Project) (*domain.BuildLog, bool) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	entry, err := r.logs.GetInProject(ctx, p.ID, c.Param("logID"))
	if err != nil {
		if isMissing(err) {
			r.renderError(c, http.StatusNotFound, "Build log not found")
			return nil, false
		}
		r.logger.Error("build log load failed", "log_id", c.Param("logID"), "error", err)
		r.renderError(c, http.StatusInternalServerError, "Failed to load build log")
		return nil, false
	}
	return entry, true
}

func (r *Router) handleLogEditForm(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	entry, ok := r.loadLog(c, p)
	if !ok {
		return
	}
	r.renderLogForm(c, http.StatusOK, p, entry, formFromLog(*entry), "")
}

func (r *Router) handleLogUpdate(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	entry, ok := r.loadLog(c, p)
	if !ok {
		return
	}
	form := readLogForm(c)
	logType := domain.LogType(form.LogType)
	if logType == "" {
		logType = entry.LogType
	}
	tags := project.SplitList(form.Tags)
	images := project.SplitList(form.Images)
	snippets := form.Snippets
	links := form.Links
	_, err := r.logs.Update(ctx, p.ID, entry.ID, buildlog.UpdateInput{
		Title:        &form.Title,
		Content:      &form.Content,
		LogType:      &logType,
		Tags:         &tags,
		Images:       &images,
		CodeSnippets: &snippets,
		Links:        &links,
	})
	if err != nil {
		if buildlog.IsValidation(err) {
			r.renderLogForm(c, http.StatusUnprocessableEntity, p, entry, form, err.Error())
			return
		}
		if isMissing(err) {
			r.renderError(c, http.StatusNotFound, "Build log not found")
			return
		}
		r.renderError(c, http.StatusInternalServerError, "Failed to update build log")
		return
	}
	redirectWithFlash(c, projectPath(p.ID), "Build log updated")
}

func (r *Router) handleLogDelete(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	entry, ok := r.loadLog(c, p)
	if !ok {
		return
	}
	if err := r.logs.Delete(ctx, p.ID, entry.ID); err != nil {
		if isMissing(err) {
			r.renderError(c, http.StatusNotFound, "Build log not found")
			return
		}
		r.renderError(c, http.StatusInternalServerError, "Failed to delete build log")
		return
	}
	redirectWithFlash(c, projectPath(p.ID), "Build log deleted")
}

func (r *Router) handleLogsWS(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	p, err := r.projects.GetOwned(ctx, userID(c), c.Param("id"))
	cancel()
	if err != nil {
		if isMissing(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		return
	}
	hub := r.logs.Hub()
	if hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed disabled"})
		return
	}
	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	hub.Register(p.ID, client)
	r.trackSubscriber(1)
	go func() {
		defer func() {
			hub.Unregister(p.ID, client)
			client.Close()
			r.trackSubscriber(-1)
		}()
		client.Wait()
	}()
}
