package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/repository"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cli, err := New(Config{
		Endpoint:            srv.URL + "/v1",
		ProjectID:           "proj",
		APIKey:              "key",
		DatabaseID:          "buildlog_db",
		ProjectsCollection:  "projects",
		BuildLogsCollection: "build_logs",
		BucketID:            "buildlog_files",
	}, WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return cli
}

func TestGetProjectNotFoundMapsToErrNotFound(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Appwrite-Project") != "proj" || r.Header.Get("X-Appwrite-Key") != "key" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		if r.URL.Path != "/v1/databases/buildlog_db/collections/projects/documents/missing" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Document with the requested ID could not be found.","code":404,"type":"document_not_found"}`))
	})

	_, err := cli.GetProject(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr APIError
	if !errors.As(err, &apiErr) || apiErr.Type != "document_not_found" {
		t.Fatalf("expected typed api error, got %#v", err)
	}
}

func TestListBuildLogsFiltersServerSideAndPaginates(t *testing.T) {
	const total = 150
	var calls int
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		queries := r.URL.Query()["queries[]"]
		if len(queries) != 4 {
			t.Errorf("expected 4 queries, got %v", queries)
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		if queries[0] != `{"method":"equal","attribute":"project_id","values":["p1"]}` {
			t.Errorf("unexpected filter %s", queries[0])
		}
		if queries[1] != `{"method":"orderAsc","attribute":"$createdAt"}` {
			t.Errorf("expected stable ordering, got %s", queries[1])
		}
		var offset struct {
			Values []int `json:"values"`
		}
		_ = json.Unmarshal([]byte(queries[3]), &offset)
		start := offset.Values[0]
		end := start + listPageSize
		if end > total {
			end = total
		}
		docs := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			docs = append(docs, map[string]any{
				"$id":        "log-" + strconv.Itoa(i),
				"project_id": "p1",
				"title":      "entry",
				"created_at": "2025-01-02T10:00:00Z",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"total": total, "documents": docs})
	})

	logs, err := cli.ListBuildLogsByProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != total {
		t.Fatalf("expected %d logs, got %d", total, len(logs))
	}
	if calls != 2 {
		t.Fatalf("expected 2 page requests, got %d", calls)
	}
}

func TestCreateBuildLogEncodesNestedValues(t *testing.T) {
	var received map[string]any
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var body struct {
			DocumentID string         `json:"documentId"`
			Data       map[string]any `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		received = body.Data
		doc := map[string]any{"$id": body.DocumentID}
		for k, v := range body.Data {
			doc[k] = v
		}
		_ = json.NewEncoder(w).Encode(doc)
	})

	entry := &domain.BuildLog{
		ProjectID:    "p1",
		Title:        "First",
		Content:      "body",
		LogType:      domain.LogFeature,
		CodeSnippets: []domain.CodeSnippet{{Language: "go", Code: "fmt.Println()"}},
		Links:        []domain.Link{{Title: "docs", URL: "https://example.com"}},
		CreatedAt:    time.Date(2025, time.March, 4, 5, 6, 7, 0, time.UTC),
	}
	if err := cli.CreateBuildLog(context.Background(), entry); err != nil {
		t.Fatalf("create: %v", err)
	}
	snippets, ok := received["code_snippets"].([]any)
	if !ok || len(snippets) != 1 {
		t.Fatalf("unexpected code_snippets payload %#v", received["code_snippets"])
	}
	if s, ok := snippets[0].(string); !ok || !strings.Contains(s, `"language":"go"`) {
		t.Fatalf("expected json encoded snippet, got %#v", snippets[0])
	}
	if entry.ID == "" {
		t.Fatalf("expected id to be assigned")
	}
	if len(entry.CodeSnippets) != 1 || entry.CodeSnippets[0].Code != "fmt.Println()" {
		t.Fatalf("snippets did not round trip: %#v", entry.CodeSnippets)
	}
	if len(entry.Links) != 1 || entry.Links[0].URL != "https://example.com" {
		t.Fatalf("links did not round trip: %#v", entry.Links)
	}
	if !entry.CreatedAt.Equal(time.Date(2025, time.March, 4, 5, 6, 7, 0, time.UTC)) {
		t.Fatalf("unexpected created_at %s", entry.CreatedAt)
	}
}

func TestUpdateProjectSendsOnlySetFields(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method %s", r.Method)
		}
		var body struct {
			Data map[string]any `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Data) != 2 {
			t.Errorf("expected name and updated_at only, got %v", body.Data)
		}
		if body.Data["name"] != "Renamed" {
			t.Errorf("unexpected name %v", body.Data["name"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"$id": "p1", "name": "Renamed", "status": "completed"})
	})

	name := "Renamed"
	project, err := cli.UpdateProject(context.Background(), "p1", domain.ProjectPatch{Name: &name, UpdatedAt: time.Now()})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if project.Name != "Renamed" || project.Status != domain.StatusCompleted {
		t.Fatalf("unexpected project %+v", project)
	}
}

func TestDecodeAcceptsObjectSnippetsAndNaiveTimestamps(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"$id":"l1","project_id":"p1","title":"t","content":"c","log_type":"note",
			"code_snippets":[{"language":"py","code":"print(1)"},"not json"],
			"created_at":"2024-12-31T23:59:58.123456"}`))
	})
	entry, err := cli.GetBuildLog(context.Background(), "l1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(entry.CodeSnippets) != 1 || entry.CodeSnippets[0].Language != "py" {
		t.Fatalf("unexpected snippets %#v", entry.CodeSnippets)
	}
	if entry.CreatedAt.Format("2006-01-02") != "2024-12-31" {
		t.Fatalf("unexpected created_at %s", entry.CreatedAt)
	}
}

func TestUploadFileSendsMultipart(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/storage/buckets/buildlog_files/files" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		fileID := r.FormValue("fileId")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"$id":          fileID,
			"name":         header.Filename,
			"mimeType":     header.Header.Get("Content-Type"),
			"sizeOriginal": len(data),
		})
	})

	file, err := cli.UploadFile(context.Background(), "shot.png", "image/png", strings.NewReader("pngdata"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if file.ID == "" || file.Name != "shot.png" || file.Size != 7 || file.MimeType != "image/png" {
		t.Fatalf("unexpected file %+v", file)
	}
	url := cli.FileURL(file.ID)
	if !strings.HasSuffix(url, "/storage/buckets/buildlog_files/files/"+file.ID+"/view?project=proj") {
		t.Fatalf("unexpected file url %s", url)
	}
}

func TestAccountCallsUseSessionHeader(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/account/sessions/email":
			if r.Header.Get("X-Appwrite-Key") == "" {
				t.Errorf("session creation must use the api key")
			}
			_, _ = w.Write([]byte(`{"secret":"s3cr3t","userId":"u1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/account":
			if r.Header.Get("X-Appwrite-Session") != "s3cr3t" {
				t.Errorf("expected session header, got %q", r.Header.Get("X-Appwrite-Session"))
			}
			if r.Header.Get("X-Appwrite-Key") != "" {
				t.Errorf("api key must not be sent with a session")
			}
			_, _ = w.Write([]byte(`{"$id":"u1","email":"a@example.com","name":"Ada"}`))
		default:
			http.NotFound(w, r)
		}
	})

	secret, err := cli.CreateSession(context.Background(), "a@example.com", "password1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	user, err := cli.GetAccount(context.Background(), secret)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if user.ID != "u1" || user.Name != "Ada" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestConflictMatchesErrConflict(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"exists","code":409,"type":"database_already_exists"}`))
	})
	if err := cli.CreateDatabase(context.Background(), "BuildLog"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
