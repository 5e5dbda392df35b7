package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordingCompleter struct {
	mu    sync.Mutex
	calls []Completion
	reply string
	err   error
}

func (r *recordingCompleter) Complete(ctx context.Context, in Completion) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, in)
	return r.reply, r.err
}

func (r *recordingCompleter) last() Completion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDisabledServiceNeverCallsProvider(t *testing.T) {
	rec := &recordingCompleter{reply: "text"}
	svc := New(rec, false, quietLogger())

	if got := svc.GenerateProjectDescription(context.Background(), "Demo", nil); got.Status != StatusDisabled || got.Text != "" {
		t.Fatalf("unexpected generation %+v", got)
	}
	if got := svc.EnhanceMarkdownExport(context.Background(), "Demo", "original", "3 logs"); got.Text != "original" {
		t.Fatalf("expected description fallback, got %+v", got)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("provider should not be called, got %d calls", len(rec.calls))
	}
	if New(nil, true, quietLogger()).Enabled() {
		t.Fatalf("nil completer must disable the service")
	}
}

func TestProjectDescriptionPrompt(t *testing.T) {
	rec := &recordingCompleter{reply: "  A great project.  "}
	svc := New(rec, true, quietLogger())

	got := svc.GenerateProjectDescription(context.Background(), "Orbit", []string{"Go", "Redis"})
	if !got.OK() || got.Text != "A great project." {
		t.Fatalf("unexpected generation %+v", got)
	}
	in := rec.last()
	if in.MaxTokens != 150 || in.Temperature != defaultTemperature {
		t.Fatalf("unexpected limits %+v", in)
	}
	if !strings.Contains(in.Prompt, "Project Name: Orbit") || !strings.Contains(in.Prompt, "Tech Stack: Go, Redis") {
		t.Fatalf("prompt missing details: %s", in.Prompt)
	}

	svc.GenerateProjectDescription(context.Background(), "Orbit", nil)
	if !strings.Contains(rec.last().Prompt, "Tech Stack: various technologies") {
		t.Fatalf("expected stack placeholder: %s", rec.last().Prompt)
	}
}

func TestBuildLogContentPrompt(t *testing.T) {
	rec := &recordingCompleter{reply: "done"}
	svc := New(rec, true, quietLogger())

	svc.GenerateBuildLogContent(context.Background(), "Orbit", "bug_fix", "race in cache")
	in := rec.last()
	if !strings.Contains(in.Prompt, "a bug fix explanation") || !strings.Contains(in.Prompt, "Context/Hints: race in cache") {
		t.Fatalf("unexpected prompt %s", in.Prompt)
	}
	if in.MaxTokens != 250 || in.Topic != "bug_fix" {
		t.Fatalf("unexpected completion %+v", in)
	}

	svc.GenerateBuildLogContent(context.Background(), "Orbit", "unknown", "  ")
	in = rec.last()
	if !strings.Contains(in.Prompt, "Write an update for") || strings.Contains(in.Prompt, "Context/Hints") {
		t.Fatalf("unexpected fallback prompt %s", in.Prompt)
	}
}

func TestProviderFailureIsReported(t *testing.T) {
	rec := &recordingCompleter{err: errors.New("quota exceeded")}
	svc := New(rec, true, quietLogger())

	got := svc.EnhanceMarkdownExport(context.Background(), "Orbit", "keep me", "none")
	if got.Status != StatusFailed || got.Text != "keep me" || got.Reason != "quota exceeded" {
		t.Fatalf("unexpected generation %+v", got)
	}

	rec.err = nil
	rec.reply = "   "
	if got := svc.Generate(context.Background(), "hi", "", 0); got.Status != StatusFailed {
		t.Fatalf("blank reply should fail, got %+v", got)
	}
	if rec.last().MaxTokens != DefaultMaxLength {
		t.Fatalf("expected default max length, got %d", rec.last().MaxTokens)
	}
}

func TestTemplateCompleterSelectsByKeyword(t *testing.T) {
	cases := []struct {
		in   Completion
		want string
	}{
		{Completion{Prompt: "Please describe my app"}, "description"},
		{Completion{Prompt: "we hit a milestone"}, "milestone"},
		{Completion{Prompt: "new feature landed"}, "feature"},
		{Completion{Prompt: "summarize it"}, "summary"},
		{Completion{Prompt: "anything"}, "description"},
		{Completion{Topic: "milestone", Prompt: "a description of a milestone"}, "milestone"},
	}
	for _, tc := range cases {
		if got := templateKey(tc.in); got != tc.want {
			t.Fatalf("templateKey(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}

	text, err := TemplateCompleter{}.Complete(context.Background(), Completion{Prompt: "feature", MaxTokens: 5})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len([]rune(text)) > 20 || text == "" || strings.HasSuffix(text, " ") {
		t.Fatalf("unexpected truncation %q", text)
	}
}

func TestGenerateHonoursMaxLength(t *testing.T) {
	svc := New(TemplateCompleter{}, true, quietLogger())
	gen := svc.Generate(context.Background(), "describe my project", "", 100)
	if !gen.OK() {
		t.Fatalf("unexpected generation %+v", gen)
	}
	if n := len([]rune(gen.Text)); n > 100 || n == 0 {
		t.Fatalf("expected at most 100 runes, got %d", n)
	}

	long := strings.Repeat("word ", 1000)
	rec := &recordingCompleter{reply: long}
	svc = New(rec, true, quietLogger())
	gen = svc.Generate(context.Background(), "hello", "", 1<<62)
	if n := len([]rune(gen.Text)); n > MaxGenerateLength {
		t.Fatalf("expected clamp to %d runes, got %d", MaxGenerateLength, n)
	}
	if got := rec.last(); got.MaxTokens != MaxGenerateLength || got.MaxLength != MaxGenerateLength {
		t.Fatalf("expected clamped budget, got %+v", got)
	}

	svc.Generate(context.Background(), "hello", "", 0)
	if got := rec.last().MaxTokens; got != DefaultMaxLength {
		t.Fatalf("expected default budget, got %d", got)
	}
}

func TestClampMaxLength(t *testing.T) {
	cases := map[int]int{-3: DefaultMaxLength, 0: DefaultMaxLength, 1: 1, 750: 750, MaxGenerateLength: MaxGenerateLength, 1 << 40: MaxGenerateLength}
	for in, want := range cases {
		if got := ClampMaxLength(in); got != want {
			t.Fatalf("ClampMaxLength(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestOpenAICompleterAgainstFakeEndpoint(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-test",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" Generated text "}}]}`)
	}))
	defer srv.Close()

	completer := NewOpenAI(OpenAIConfig{APIKey: "sk-test", Model: "gpt-test", BaseURL: srv.URL + "/v1/"})
	svc := New(completer, true, quietLogger())

	gen := svc.GenerateProjectDescription(context.Background(), "Orbit", []string{"Go"})
	if !gen.OK() || gen.Text != "Generated text" {
		t.Fatalf("unexpected generation %+v", gen)
	}
	if got.Model != "gpt-test" || got.MaxTokens != 150 {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestOpenAICompleterErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	svc := New(NewOpenAI(OpenAIConfig{APIKey: "sk-bad", BaseURL: srv.URL + "/v1/"}), true, quietLogger())
	if gen := svc.Generate(context.Background(), "hello", "", 10); gen.Status != StatusFailed || gen.Reason == "" {
		t.Fatalf("expected failure, got %+v", gen)
	}
	if NewOpenAI(OpenAIConfig{}) != nil {
		t.Fatalf("missing key should yield nil completer")
	}
}
