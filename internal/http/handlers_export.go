package httpx

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/buildlog-app/buildlog/internal/service/export"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func queryFlag(c *gin.Context, key string, fallback bool) bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "false", "no", "off":
		return false
	case "":
		return fallback
	}
	return true
}

func exportFilename(name string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "project"
	}
	return slug + ".md"
}

func (r *Router) handleExport(c *gin.Context) {
	ctx, cancel := upstreamContext(c)
	defer cancel()

	p, ok := r.loadProject(ctx, c)
	if !ok {
		return
	}
	logs, err := r.logs.List(ctx, p.ID, false)
	if err != nil {
		r.logger.Error("export logs failed", "project_id", p.ID, "error", err)
		r.renderError(c, http.StatusInternalServerError, "Failed to load build logs")
		return
	}

	opts := export.Options{
		IncludeLogs:         queryFlag(c, "include_logs", true),
		IncludeImages:       queryFlag(c, "include_images", true),
		IncludeCodeSnippets: queryFlag(c, "include_code_snippets", true),
		FileURL:             r.files.FileURL,
		Location:            r.opts.Location,
	}
	var summaryNote string
	if queryFlag(c, "summary", false) {
		gen := r.ai.EnhanceMarkdownExport(ctx, p.Name, p.Description, export.ProgressSummary(logs))
		if gen.OK() {
			opts.Summary = gen.Text
		} else {
			summaryNote = "AI summary unavailable: " + gen.Reason
		}
	}
	md := export.Render(*p, logs, opts)

	if c.Query("format") == "md" {
		c.Header("Content-Disposition", `attachment; filename="`+exportFilename(p.Name)+`"`)
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	data := gin.H{
		"Title":    "Export " + p.Name,
		"Project":  p,
		"Markdown": md,
	}
	if summaryNote != "" {
		data["Flash"] = summaryNote
	}
	r.render(c, http.StatusOK, "export", data)
}
