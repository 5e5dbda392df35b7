// Package schema provisions the remote database, collections and storage
// bucket that BuildLog expects.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/gateway"
	"github.com/buildlog-app/buildlog/internal/repository"
)

// Admin is the subset of the gateway used for provisioning.
type Admin interface {
	GetDatabase(ctx context.Context) error
	CreateDatabase(ctx context.Context, name string) error
	GetCollection(ctx context.Context, collection string) error
	CreateCollection(ctx context.Context, collection, name string) error
	CreateAttribute(ctx context.Context, collection string, attr gateway.Attribute) error
	CreateIndex(ctx context.Context, collection, key string, attributes ...string) error
	GetBucket(ctx context.Context) error
	CreateBucket(ctx context.Context, name string, maxFileSize int64) error
}

// Collections names the collection ids to provision.
type Collections struct {
	Projects  string
	BuildLogs string
}

// Runner applies the schema idempotently.
type Runner struct {
	admin       Admin
	collections Collections
	maxFileSize int64
	log         *slog.Logger
}

// Result counts what Ensure created versus found in place.
type Result struct {
	Created  int
	Existing int
}

// New returns a schema runner.
func New(admin Admin, collections Collections, maxFileSize int64, log *slog.Logger) (Runner, error) {
	if admin == nil {
		return Runner{}, errors.New("nil admin client provided")
	}
	if collections.Projects == "" || collections.BuildLogs == "" {
		return Runner{}, errors.New("collection ids are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return Runner{admin: admin, collections: collections, maxFileSize: maxFileSize, log: log}, nil
}

func statusValues() []string {
	out := make([]string, 0, 4)
	for _, s := range domain.ProjectStatuses() {
		out = append(out, string(s))
	}
	return out
}

func logTypeValues() []string {
	out := make([]string, 0, 5)
	for _, t := range domain.LogTypes() {
		out = append(out, string(t))
	}
	return out
}

// ProjectAttributes lists the project collection layout.
func ProjectAttributes() []gateway.Attribute {
	return []gateway.Attribute{
		{Key: "user_id", Size: 64, Required: true},
		{Key: "name", Size: 200, Required: true},
		{Key: "description", Size: 5000},
		{Key: "tech_stack", Size: 100, Array: true},
		{Key: "repository_url", Size: 500},
		{Key: "demo_url", Size: 500},
		{Key: "tags", Size: 50, Array: true},
		{Key: "status", Kind: "enum", Elements: statusValues(), Default: string(domain.StatusInProgress)},
		{Key: "created_at", Size: 64},
		{Key: "updated_at", Size: 64},
	}
}

// BuildLogAttributes lists the build log collection layout.
func BuildLogAttributes() []gateway.Attribute {
	return []gateway.Attribute{
		{Key: "project_id", Size: 64, Required: true},
		{Key: "title", Size: 200, Required: true},
		{Key: "content", Size: 20000, Required: true},
		{Key: "log_type", Kind: "enum", Elements: logTypeValues(), Default: string(domain.LogUpdate)},
		{Key: "tags", Size: 50, Array: true},
		{Key: "code_snippets", Size: 10000, Array: true},
		{Key: "images", Size: 255, Array: true},
		{Key: "links", Size: 1000, Array: true},
		{Key: "created_at", Size: 64},
	}
}

// Ensure creates whatever is missing. Resources that already exist are
// left untouched.
func (r Runner) Ensure(ctx context.Context) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var res Result
	track := func(what string, err error) error {
		switch {
		case err == nil:
			res.Created++
			r.log.Info("schema resource created", "resource", what)
			return nil
		case errors.Is(err, repository.ErrConflict):
			res.Existing++
			return nil
		default:
			return fmt.Errorf("create %s: %w", what, err)
		}
	}
	ensure := func(what string, get func() error, create func() error) error {
		err := get()
		if err == nil {
			res.Existing++
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup %s: %w", what, err)
		}
		return track(what, create())
	}

	r.log.Info("ensuring schema")
	if err := ensure("database", func() error { return r.admin.GetDatabase(runCtx) },
		func() error { return r.admin.CreateDatabase(runCtx, "BuildLog") }); err != nil {
		return res, err
	}

	layouts := []struct {
		id      string
		name    string
		attrs   []gateway.Attribute
		indexed string
	}{
		{r.collections.Projects, "Projects", ProjectAttributes(), "user_id"},
		{r.collections.BuildLogs, "Build Logs", BuildLogAttributes(), "project_id"},
	}
	for _, l := range layouts {
		if err := ensure("collection "+l.id, func() error { return r.admin.GetCollection(runCtx, l.id) },
			func() error { return r.admin.CreateCollection(runCtx, l.id, l.name) }); err != nil {
			return res, err
		}
		for _, attr := range l.attrs {
			if err := track(l.id+"."+attr.Key, r.admin.CreateAttribute(runCtx, l.id, attr)); err != nil {
				return res, err
			}
		}
		if err := track(l.id+" index", r.admin.CreateIndex(runCtx, l.id, "idx_"+l.indexed, l.indexed)); err != nil {
			return res, err
		}
	}

	if err := ensure("bucket", func() error { return r.admin.GetBucket(runCtx) },
		func() error { return r.admin.CreateBucket(runCtx, "BuildLog Files", r.maxFileSize) }); err != nil {
		return res, err
	}
	r.log.Info("schema ready", "created", res.Created, "existing", res.Existing)
	return res, nil
}
