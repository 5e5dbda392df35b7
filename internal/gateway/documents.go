package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const listPageSize = 100

// naiveLayouts are accepted for timestamps written without a zone offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

type documentList[T any] struct {
	Total     int `json:"total"`
	Documents []T `json:"documents"`
}

func (c *Client) documentsPath(collection string) string {
	return "/databases/" + escape(c.cfg.DatabaseID) + "/collections/" + escape(collection) + "/documents"
}

func (c *Client) documentPath(collection, id string) string {
	return c.documentsPath(collection) + "/" + escape(id)
}

func (c *Client) createDocument(ctx context.Context, collection, id string, data map[string]any, v any) error {
	if id == "" {
		id = uuid.NewString()
	}
	body := map[string]any{"documentId": id, "data": data}
	return c.do(ctx, call{method: http.MethodPost, path: c.documentsPath(collection), body: body}, v)
}

func (c *Client) getDocument(ctx context.Context, collection, id string, v any) error {
	return c.do(ctx, call{method: http.MethodGet, path: c.documentPath(collection, id)}, v)
}

func (c *Client) updateDocument(ctx context.Context, collection, id string, data map[string]any, v any) error {
	body := map[string]any{"data": data}
	return c.do(ctx, call{method: http.MethodPatch, path: c.documentPath(collection, id), body: body}, v)
}

func (c *Client) deleteDocument(ctx context.Context, collection, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: c.documentPath(collection, id)}, nil)
}

// listAll reads every page of documents matching filters.
func listAll[T any](ctx context.Context, c *Client, collection string, filters ...string) ([]T, error) {
	var out []T
	offset := 0
	for {
		q := url.Values{}
		for _, f := range filters {
			q.Add("queries[]", f)
		}
		// A stable order keeps offset pages from skipping or repeating
		// documents while others are written.
		q.Add("queries[]", OrderAsc("$createdAt"))
		q.Add("queries[]", Limit(listPageSize))
		q.Add("queries[]", Offset(offset))

		var page documentList[T]
		if err := c.do(ctx, call{method: http.MethodGet, path: c.documentsPath(collection), query: q}, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Documents...)
		offset += len(page.Documents)
		if len(page.Documents) == 0 || offset >= page.Total {
			return out, nil
		}
	}
}

func (c *Client) formatTime(t time.Time) string {
	if t.IsZero() {
		t = c.now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts RFC 3339 as well as naive ISO timestamps, which are
// read in the client's location. Unparsable input yields the zero time.
func (c *Client) parseTime(values ...string) time.Time {
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t
		}
		for _, layout := range naiveLayouts {
			if t, err := time.ParseInLocation(layout, raw, c.location); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// encodedList decodes arrays whose items are either objects or JSON
// documents encoded as strings. Malformed items are skipped.
type encodedList[T any] []T

func (l *encodedList[T]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || bytes.Equal(item, []byte("null")) {
			continue
		}
		var v T
		if item[0] == '"' {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				continue
			}
			if err := json.Unmarshal([]byte(s), &v); err != nil {
				continue
			}
		} else if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

func encodeList[T any](items []T) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		out = append(out, string(data))
	}
	return out
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
