package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/service/analytics"
	"github.com/buildlog-app/buildlog/internal/service/project"
)

func (r *Router) handleDashboard(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	uid := userID(c)
	projects, err := r.projects.List(ctx, uid)
	if err != nil {
		r.logger.Error("dashboard projects failed", "user_id", uid, "error", err)
		projects = nil
	}
	r.render(c, http.StatusOK, "dashboard", gin.H{
		"Title":    "Dashboard",
		"Projects": projects,
		"Overview": r.analytics.Overview(ctx, uid),
		"LoadErr":  err != nil,
	})
}

func (r *Router) handleAnalyticsPage(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	report := r.analytics.Complete(ctx, userID(c))
	days := analytics.DefaultActivityDays
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 365 {
			days = n
			report.ActivityOverTime = r.analytics.ActivityOverTime(ctx, userID(c), days)
		}
	}
	r.render(c, http.StatusOK, "analytics", gin.H{
		"Title":  "Analytics",
		"Report": report,
		"Days":   days,
	})
}

func (r *Router) handleAnalyticsAPI(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()
	c.JSON(http.StatusOK, r.analytics.Complete(ctx, userID(c)))
}

// projectForm holds the raw form values so they can be echoed back after a
// validation error.
type projectForm struct {
	Name          string
	Description   string
	TechStack     string
	RepositoryURL string
	DemoURL       string
	Tags          string
	Status        string
}

func readProjectForm(c *gin.Context) projectForm {
	return projectForm{
		Name:          c.PostForm("name"),
		Description:   c.PostForm("description"),
		TechStack:     c.PostForm("tech_stack"),
		RepositoryURL: c.PostForm("repository_url"),
		DemoURL:       c.PostForm("demo_url"),
		Tags:          c.PostForm("tags"),
		Status:        c.PostForm("status"),
	}
}

func formFromProject(p domain.Project) projectForm {
	return projectForm{
		Name:          p.Name,
		Description:   p.Description,
		TechStack:     strings.Join(p.TechStack, ", "),
		RepositoryURL: p.RepositoryURL,
		DemoURL:       p.DemoURL,
		Tags:          strings.Join(p.Tags, ", "),
		Status:        string(p.Status),
	}
}

func (r *Router) handleProjectNewForm(c *gin.Context) {
	r.render(c, http.StatusOK, "project_form", gin.H{
		"Title": "New Project",
		"Form":  projectForm{Status: string(domain.StatusInProgress)},
	})
}

func (r *Router) handleProjectCreate(c *gin.Context) {
	form := readProjectForm(c)
	ctx, cancel := upstreamContext(c)
	defer cancel()

	created, err := r.projects.Create(ctx, project.CreateInput{
		UserID:        userID(c),
		Name:          form.Name,
		Description:   form.Description,
		TechStack:     project.SplitList(form.TechStack),
		RepositoryURL: form.RepositoryURL,
		DemoURL:       form.DemoURL,
		Tags:          project.SplitList(form.Tags),
		Status:        domain.ProjectStatus(form.Status),
	})
	if err != nil {
		if project.IsValidation(err) {
			r.render(c, http.StatusUnprocessableEntity, "project_form", gin.H{
				"Title": "New Project",
				"Form":  form,
				"Error": err.Error(),
			})
			return
		}
		r.renderError(c, http.StatusInternalServerError, "Failed to create project")
		return
	}
	c.Redirect(http.StatusSeeOther, projectPath(created.ID))
}

func (r *Router) handleProjectDetail(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	logs, err := r.logs.List(ctx, p.ID, true)
	if err != nil {
		r.logger.Error("project logs failed", "project_id", p.ID, "error", err)
		r.renderError(c, http.StatusInternalServerError, "Failed to load build logs")
		return
	}
	r.render(c, http.StatusOK, "project", gin.H{
		"Title":   p.Name,
		"Project": p,
		"Logs":    logs,
	})
}

func (r *Router) handleProjectEditForm(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	r.render(c, http.StatusOK, "project_form", gin.H{
		"Title":   "Edit " + p.Name,
		"Project": p,
		"Form":    formFromProject(*p),
	})
}

func (r *Router) handleProjectUpdate(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	form := readProjectForm(c)
	techStack := project.SplitList(form.TechStack)
	tags := project.SplitList(form.Tags)
	input := project.UpdateInput{
		Name:          &form.Name,
		Description:   &form.Description,
		TechStack:     &techStack,
		RepositoryURL: &form.RepositoryURL,
		DemoURL:       &form.DemoURL,
		Tags:          &tags,
	}
	if form.Status != "" {
		status := domain.ProjectStatus(form.Status)
		input.Status = &status
	}
	if _, err := r.projects.Update(ctx, p.ID, input); err != nil {
		if project.IsValidation(err) {
			r.render(c, http.StatusUnprocessableEntity, "project_form", gin.H{
				"Title":   "Edit " + p.Name,
				"Project": p,
				"Form":    form,
				"Error":   err.Error(),
			})
			return
		}
		if isMissing(err) {
			r.renderError(c, http.StatusNotFound, "Project not found")
			return
		}
		r.renderError(c, http.StatusInternalServerError, "Failed to update project")
		return
	}
	redirectWithFlash(c, projectPath(p.ID), "Project updated")
}

func (r *Router) handleProjectDelete(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	if err := r.projects.Delete(ctx, p.ID); err != nil {
		if isMissing(err) {
			r.renderError(c, http.StatusNotFound, "Project not found")
			return
		}
		r.renderError(c, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	redirectWithFlash(c, "/dashboard", "Project deleted")
}

// handlePortfolio is the public read-only view; no ownership check.
func (r *Router) handlePortfolio(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, err := r.projects.Get(ctx, c.Param("id"))
	if err != nil {
		if isMissing(err) {
			r.renderError(c, http.StatusNotFound, "Project not found")
			return
		}
		r.logger.Error("portfolio load failed", "project_id", c.Param("id"), "error", err)
		r.renderError(c, http.StatusInternalServerError, "Failed to load project")
		return
	}
	logs, err := r.logs.List(ctx, p.ID, false)
	if err != nil {
		r.renderError(c, http.StatusInternalServerError, "Failed to load build logs")
		return
	}
	r.render(c, http.StatusOK, "portfolio", gin.H{
		"Title":   p.Name,
		"Project": p,
		"Logs":    logs,
	})
}
