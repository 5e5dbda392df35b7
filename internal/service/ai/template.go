package ai

import (
	"context"
	"strings"
	"unicode/utf8"
)

var templates = map[string]string{
	"description": `This project applies a modern toolchain to a concrete, real-world problem. It was built with attention to user experience and performance and follows current practice in software development.

Highlights:
- an approachable user interface
- an architecture that scales
- careful error handling
- thorough documentation

It shows solid technical range and creative problem solving, which makes it a strong portfolio piece.`,
	"milestone": `Reached an important milestone! Getting here took focused work, a lot of problem solving and several rounds of iteration. The result reflects a good grasp of the core concepts and their practical application.`,
	"feature":   `Shipped a new feature that extends what the project can do and makes it nicer to use. The work shows attention to detail and adds real value to the overall product.`,
	"summary":   `A complete project that covers the full stack. Every stage from the first idea to deployment was handled with care, and the result is a polished application ready for production use.`,
}

// TemplateCompleter answers prompts from canned templates chosen by keyword.
// It needs no network access and is useful for demos and local development.
type TemplateCompleter struct{}

// Complete implements Completer.
func (TemplateCompleter) Complete(ctx context.Context, in Completion) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := templates[templateKey(in)]
	if in.Context != "" {
		text += "\n\nNotes: " + in.Context
	}
	return truncateWords(text, templateLimit(in)), nil
}

// templateLimit prefers an explicit rune cap and otherwise allows roughly
// four runes per token.
func templateLimit(in Completion) int {
	if in.MaxLength > 0 {
		return in.MaxLength
	}
	if in.MaxTokens <= 0 || in.MaxTokens > MaxGenerateLength {
		return MaxGenerateLength * 4
	}
	return in.MaxTokens * 4
}

func templateKey(in Completion) string {
	topic := strings.ToLower(in.Topic)
	if _, ok := templates[topic]; ok {
		return topic
	}
	p := strings.ToLower(in.Prompt)
	switch {
	case strings.Contains(p, "description") || strings.Contains(p, "describe"):
		return "description"
	case strings.Contains(p, "milestone"):
		return "milestone"
	case strings.Contains(p, "feature"):
		return "feature"
	case strings.Contains(p, "summary") || strings.Contains(p, "summarize"):
		return "summary"
	}
	return "description"
}

// truncateWords cuts s to at most limit runes, backing off to a word
// boundary. A non-positive limit disables truncation.
func truncateWords(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)[:limit]
	cut := string(runes)
	if idx := strings.LastIndexAny(cut, " \n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
