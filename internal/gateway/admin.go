package gateway

import (
	"context"
	"fmt"
	"net/http"
)

// Attribute describes a collection attribute to provision.
type Attribute struct {
	Key      string
	Kind     string // "string" or "enum"
	Size     int
	Required bool
	Array    bool
	Elements []string
	Default  string
}

// GetDatabase returns nil when the database exists.
func (c *Client) GetDatabase(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodGet, path: "/databases/" + escape(c.cfg.DatabaseID)}, nil)
}

// CreateDatabase creates the configured database.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	body := map[string]any{"databaseId": c.cfg.DatabaseID, "name": name}
	return c.do(ctx, call{method: http.MethodPost, path: "/databases", body: body}, nil)
}

func (c *Client) collectionsPath() string {
	return "/databases/" + escape(c.cfg.DatabaseID) + "/collections"
}

// GetCollection returns nil when the collection exists.
func (c *Client) GetCollection(ctx context.Context, collection string) error {
	return c.do(ctx, call{method: http.MethodGet, path: c.collectionsPath() + "/" + escape(collection)}, nil)
}

// CreateCollection creates a collection with document security disabled.
func (c *Client) CreateCollection(ctx context.Context, collection, name string) error {
	body := map[string]any{
		"collectionId":     collection,
		"name":             name,
		"documentSecurity": false,
	}
	return c.do(ctx, call{method: http.MethodPost, path: c.collectionsPath(), body: body}, nil)
}

// CreateAttribute adds an attribute to a collection.
func (c *Client) CreateAttribute(ctx context.Context, collection string, attr Attribute) error {
	body := map[string]any{
		"key":      attr.Key,
		"required": attr.Required,
		"array":    attr.Array,
	}
	if attr.Default != "" && !attr.Required {
		body["default"] = attr.Default
	}
	kind := attr.Kind
	switch kind {
	case "enum":
		body["elements"] = attr.Elements
	case "", "string":
		kind = "string"
		size := attr.Size
		if size <= 0 {
			size = 255
		}
		body["size"] = size
	default:
		return fmt.Errorf("unsupported attribute kind %q", attr.Kind)
	}
	path := c.collectionsPath() + "/" + escape(collection) + "/attributes/" + kind
	return c.do(ctx, call{method: http.MethodPost, path: path, body: body}, nil)
}

// CreateIndex adds a key index over attributes.
func (c *Client) CreateIndex(ctx context.Context, collection, key string, attributes ...string) error {
	body := map[string]any{"key": key, "type": "key", "attributes": attributes}
	path := c.collectionsPath() + "/" + escape(collection) + "/indexes"
	return c.do(ctx, call{method: http.MethodPost, path: path, body: body}, nil)
}

// GetBucket returns nil when the storage bucket exists.
func (c *Client) GetBucket(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodGet, path: "/storage/buckets/" + escape(c.cfg.BucketID)}, nil)
}

// CreateBucket creates the storage bucket.
func (c *Client) CreateBucket(ctx context.Context, name string, maxFileSize int64) error {
	body := map[string]any{
		"bucketId":     c.cfg.BucketID,
		"name":         name,
		"fileSecurity": false,
	}
	if maxFileSize > 0 {
		body["maximumFileSize"] = maxFileSize
	}
	return c.do(ctx, call{method: http.MethodPost, path: "/storage/buckets", body: body}, nil)
}
