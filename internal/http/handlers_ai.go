package httpx

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/buildlog-app/buildlog/internal/service/ai"
	"github.com/buildlog-app/buildlog/internal/service/project"
)

const aiDisabledMessage = "AI features are not enabled. Please configure OPENAI_API_KEY in your environment."

// AI endpoints accept either form posts or JSON bodies.
type descriptionRequest struct {
	ProjectName string `form:"project_name" json:"project_name" binding:"required"`
	TechStack   string `form:"tech_stack" json:"tech_stack"`
}

type logContentRequest struct {
	ProjectName string `form:"project_name" json:"project_name" binding:"required"`
	LogType     string `form:"log_type" json:"log_type"`
	Context     string `form:"context" json:"context"`
}

type generateRequest struct {
	Prompt    string `form:"prompt" json:"prompt"`
	Context   string `form:"context" json:"context"`
	MaxLength int    `form:"max_length" json:"max_length"`
}

func aiFailure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func (r *Router) handleAIStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": r.ai.Enabled()})
}

func (r *Router) handleGenerateDescription(c *gin.Context) {
	if !r.ai.Enabled() {
		aiFailure(c, http.StatusBadRequest, aiDisabledMessage)
		return
	}
	var req descriptionRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.ProjectName) == "" {
		aiFailure(c, http.StatusBadRequest, "project_name is required")
		return
	}
	gen := r.ai.GenerateProjectDescription(c.Request.Context(), req.ProjectName, project.SplitList(req.TechStack))
	if !gen.OK() {
		aiFailure(c, http.StatusInternalServerError, "Failed to generate description")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "description": gen.Text})
}

func (r *Router) handleGenerateLogContent(c *gin.Context) {
	if !r.ai.Enabled() {
		aiFailure(c, http.StatusBadRequest, aiDisabledMessage)
		return
	}
	var req logContentRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.ProjectName) == "" {
		aiFailure(c, http.StatusBadRequest, "project_name is required")
		return
	}
	if req.LogType == "" {
		req.LogType = "update"
	}
	gen := r.ai.GenerateBuildLogContent(c.Request.Context(), req.ProjectName, req.LogType, req.Context)
	if !gen.OK() {
		aiFailure(c, http.StatusInternalServerError, "Failed to generate content")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "content": gen.Text})
}

func (r *Router) handleGenerate(c *gin.Context) {
	if !r.ai.Enabled() {
		aiFailure(c, http.StatusBadRequest, aiDisabledMessage)
		return
	}
	var req generateRequest
	if err := c.ShouldBind(&req); err != nil {
		aiFailure(c, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		aiFailure(c, http.StatusBadRequest, "Prompt is required")
		return
	}
	maxLength := req.MaxLength
	if maxLength == 0 {
		maxLength = ai.DefaultMaxLength
	}
	if maxLength < 1 || maxLength > ai.MaxGenerateLength {
		aiFailure(c, http.StatusBadRequest, fmt.Sprintf("max_length must be between 1 and %d", ai.MaxGenerateLength))
		return
	}
	gen := r.ai.Generate(c.Request.Context(), prompt, req.Context, maxLength)
	if !gen.OK() {
		aiFailure(c, http.StatusInternalServerError, "Failed to generate text")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"generated_text": gen.Text,
		"prompt":         prompt,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
