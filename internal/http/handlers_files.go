package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// uploadFramingSlack is the allowance for multipart boundaries and part
// headers on top of the file itself.
const uploadFramingSlack = 1 << 20

func (r *Router) handleUpload(c *gin.Context) {
	limit := r.opts.UploadMaxBytes
	if c.Request.ContentLength > limit+uploadFramingSlack {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "file too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+uploadFramingSlack)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is required"})
		return
	}
	if header.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "file too large"})
		return
	}
	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not read upload"})
		return
	}
	defer src.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx, cancel := upstreamContext(c)
	defer cancel()

	filename := filepath.Base(header.Filename)
	file, err := r.files.UploadFile(ctx, filename, contentType, src)
	if err != nil {
		r.logger.Error("upload failed", "filename", filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "upload failed"})
		return
	}
	r.recordUpload(file.Size)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"file_id":  file.ID,
		"filename": filename,
		"url":      "/files/" + url.PathEscape(file.ID),
	})
}

func (r *Router) handleFile(c *gin.Context) {
	body, contentType, err := r.files.OpenFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if isMissing(err) {
			c.Status(http.StatusNotFound)
			return
		}
		r.logger.Error("file fetch failed", "file_id", c.Param("id"), "error", err)
		c.Status(http.StatusBadGateway)
		return
	}
	defer body.Close()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
