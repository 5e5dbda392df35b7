package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/buildlog-app/buildlog/internal/domain"
)

// uploadChunkSize is the largest body the storage API accepts in one request;
// bigger files are sent as Content-Range chunks.
const uploadChunkSize = 5 << 20

type fileDocument struct {
	ID           string `json:"$id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	SizeOriginal int64  `json:"sizeOriginal"`
}

func (c *Client) filesPath() string {
	return "/storage/buckets/" + escape(c.cfg.BucketID) + "/files"
}

// UploadFile stores body under a freshly generated file id.
func (c *Client) UploadFile(ctx context.Context, filename, contentType string, body io.Reader) (*domain.File, error) {
	if body == nil {
		return nil, errors.New("upload file: empty body")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("upload file: read body: %w", err)
	}
	if strings.TrimSpace(filename) == "" {
		filename = "upload"
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	fileID := uuid.NewString()
	total := len(data)

	var doc fileDocument
	for start := 0; start == 0 || start < total; start += uploadChunkSize {
		end := start + uploadChunkSize
		if end > total {
			end = total
		}
		chunked := total > uploadChunkSize
		if err := c.uploadChunk(ctx, fileID, filename, contentType, data[start:end], start, total, chunked, &doc); err != nil {
			return nil, fmt.Errorf("upload file: %w", err)
		}
		if total == 0 {
			break
		}
	}
	return &domain.File{ID: doc.ID, Name: doc.Name, MimeType: doc.MimeType, Size: doc.SizeOriginal}, nil
}

func (c *Client) uploadChunk(ctx context.Context, fileID, filename, contentType string, chunk []byte, start, total int, chunked bool, out *fileDocument) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("fileId", fileID); err != nil {
		return err
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.filesPath(), nil, &buf, "")
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if chunked {
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, start+len(chunk)-1, total))
		if start > 0 {
			req.Header.Set("X-Appwrite-ID", fileID)
		}
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// FileURL returns the public view URL for a stored file without a round trip.
func (c *Client) FileURL(fileID string) string {
	q := url.Values{"project": []string{c.cfg.ProjectID}}
	return c.baseURL + c.filesPath() + "/" + escape(fileID) + "/view?" + q.Encode()
}

// OpenFile streams a stored file. The caller must close the reader.
func (c *Client) OpenFile(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.filesPath()+"/"+escape(fileID)+"/view", nil, nil, "")
	if err != nil {
		return nil, "", err
	}
	req.Header.Del("Accept")
	resp, err := c.send(req)
	if err != nil {
		return nil, "", fmt.Errorf("open file %s: %w", fileID, err)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// DeleteFile removes a stored file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.do(ctx, call{method: http.MethodDelete, path: c.filesPath() + "/" + escape(fileID)}, nil); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}
