package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	defaultTemperature = 0.7
	// DefaultMaxLength is the length budget for free-form generation. It is
	// sent as the token limit and also caps the returned text in runes.
	DefaultMaxLength = 500
	// MaxGenerateLength bounds caller-supplied lengths.
	MaxGenerateLength = 2000
)

// Status describes how a generation ended.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusDisabled  Status = "disabled"
	StatusFailed    Status = "failed"
)

// Generation is the outcome of a helper call. Text is always safe to use:
// it is empty (or the caller's original text) unless Status is generated.
type Generation struct {
	Text   string
	Status Status
	Reason string
}

// OK reports whether text was produced by the provider.
func (g Generation) OK() bool {
	return g.Status == StatusGenerated && g.Text != ""
}

// Completion is a single prompt sent to a provider.
type Completion struct {
	// Topic is a short hint such as "description" or a log type, used by
	// providers that do not interpret free text.
	Topic string
	// Context is the raw caller-supplied context, already part of Prompt.
	Context   string
	System    string
	Prompt    string
	MaxTokens int
	// MaxLength caps the returned text in runes when positive.
	MaxLength   int
	Temperature float64
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, in Completion) (string, error)
}

var errEmptyCompletion = errors.New("provider returned no text")

// Service formats prompts and forwards them to a Completer.
type Service struct {
	completer Completer
	enabled   bool
	logger    *slog.Logger
	timeout   time.Duration
}

// New constructs the helper. A nil completer or enabled=false disables it.
func New(completer Completer, enabled bool, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if c, ok := completer.(*OpenAICompleter); ok && c == nil {
		completer = nil
	}
	initMetrics()
	return Service{completer: completer, enabled: enabled && completer != nil, logger: logger, timeout: 30 * time.Second}
}

// Enabled reports whether generation requests will reach a provider.
func (s Service) Enabled() bool {
	return s.enabled
}

func (s Service) run(ctx context.Context, kind string, in Completion, fallback string) Generation {
	if !s.enabled {
		recordGeneration(kind, StatusDisabled)
		return Generation{Text: fallback, Status: StatusDisabled, Reason: "ai features are disabled"}
	}
	if in.Temperature == 0 {
		in.Temperature = defaultTemperature
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.completer.Complete(ctx, in)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = errEmptyCompletion
	}
	if err != nil {
		s.logger.Error("ai generation failed", "kind", kind, "error", err)
		recordGeneration(kind, StatusFailed)
		return Generation{Text: fallback, Status: StatusFailed, Reason: err.Error()}
	}
	if in.MaxLength > 0 {
		text = truncateWords(text, in.MaxLength)
	}
	recordGeneration(kind, StatusGenerated)
	return Generation{Text: text, Status: StatusGenerated}
}

// GenerateProjectDescription writes a short pitch for a project.
func (s Service) GenerateProjectDescription(ctx context.Context, projectName string, techStack []string) Generation {
	stack := "various technologies"
	if len(techStack) > 0 {
		stack = strings.Join(techStack, ", ")
	}
	prompt := fmt.Sprintf(`Write a compelling 2-3 sentence description of a software project.

Project Name: %s
Tech Stack: %s

Keep it professional and concise. Explain what the project is for and how it is built, in a tone suitable for a hackathon submission or a portfolio.`, projectName, stack)

	return s.run(ctx, "project_description", Completion{
		Topic:     "description",
		System:    "You are a helpful assistant that writes compelling project descriptions for software projects and hackathon submissions.",
		Prompt:    prompt,
		MaxTokens: 150,
	}, "")
}

var logTypePhrases = map[string]string{
	"update":    "a progress update describing recent work",
	"milestone": "a milestone achievement announcement",
	"feature":   "a new feature implementation description",
	"bug_fix":   "a bug fix explanation",
	"note":      "a general development note",
}

// LogTypePhrase returns the prompt phrase used for a log type.
func LogTypePhrase(logType string) string {
	if phrase, ok := logTypePhrases[logType]; ok {
		return phrase
	}
	return "an update"
}

// GenerateBuildLogContent drafts the body of a build log entry.
func (s Service) GenerateBuildLogContent(ctx context.Context, projectName, logType, hints string) Generation {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %s for a software project called %q.", LogTypePhrase(logType), projectName)
	if h := strings.TrimSpace(hints); h != "" {
		b.WriteString("\nContext/Hints: ")
		b.WriteString(h)
	}
	b.WriteString(`

Requirements:
- professional and technical
- two or three paragraphs
- concrete technical details
- fit for a build log or development journal

Return plain text without Markdown.`)

	return s.run(ctx, "build_log_content", Completion{
		Topic:     logType,
		Context:   strings.TrimSpace(hints),
		System:    "You are a technical writer helping document software development progress.",
		Prompt:    b.String(),
		MaxTokens: 250,
	}, "")
}

// EnhanceMarkdownExport produces an executive summary for an export. When
// generation is unavailable the description is returned unchanged.
func (s Service) EnhanceMarkdownExport(ctx context.Context, projectName, description, logsSummary string) Generation {
	prompt := fmt.Sprintf(`Write an executive summary for this project's documentation.

Project: %s
Description: %s
Build Progress: %s

One paragraph. Lead with the value of the project, name the main technical achievements and keep it short enough for judges, recruiters or stakeholders to skim.`, projectName, description, logsSummary)

	return s.run(ctx, "export_summary", Completion{
		Topic:     "summary",
		System:    "You are an expert at writing executive summaries for technical projects.",
		Prompt:    prompt,
		MaxTokens: 200,
	}, description)
}

// Generate runs a free-form prompt with optional context. The result is at
// most maxLength runes; non-positive lengths use DefaultMaxLength and larger
// ones are clamped to MaxGenerateLength.
func (s Service) Generate(ctx context.Context, prompt, extra string, maxLength int) Generation {
	maxLength = ClampMaxLength(maxLength)
	full := strings.TrimSpace(prompt)
	if c := strings.TrimSpace(extra); c != "" {
		full += "\n\nContext: " + c
	}
	return s.run(ctx, "free_form", Completion{
		Context:   strings.TrimSpace(extra),
		System:    "You are a helpful assistant that writes compelling project descriptions.",
		Prompt:    full,
		MaxTokens: maxLength,
		MaxLength: maxLength,
	}, "")
}

// ClampMaxLength maps a requested length onto [1, MaxGenerateLength].
func ClampMaxLength(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxLength
	case n > MaxGenerateLength:
		return MaxGenerateLength
	}
	return n
}
