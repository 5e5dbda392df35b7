// Package export turns a project and its build logs into a portable
// Markdown document.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/buildlog-app/buildlog/internal/domain"
)

// TimeLayout formats build log timestamps in the document.
const TimeLayout = "2006-01-02 15:04"

const footer = "\n---\n\nGenerated with [BuildLog](https://github.com/buildlog-app/buildlog) - AI-Powered Project Documentation Platform\n"

// Options toggles optional sections of the document.
type Options struct {
	IncludeLogs         bool
	IncludeImages       bool
	IncludeCodeSnippets bool
	// Summary is inserted under the description when non-empty.
	Summary string
	// FileURL resolves stored image ids. Values that already look like
	// URLs are written as-is.
	FileURL func(id string) string
	// Location is the zone timestamps are written in. Nil keeps each
	// timestamp's own zone.
	Location *time.Location
}

// DefaultOptions includes every section.
func DefaultOptions() Options {
	return Options{IncludeLogs: true, IncludeImages: true, IncludeCodeSnippets: true}
}

// Render builds the Markdown document. Logs are written oldest first
// regardless of the order they are passed in.
func Render(project domain.Project, logs []domain.BuildLog, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", project.Name)
	fmt.Fprintf(&b, "%s\n\n", project.Description)

	if s := strings.TrimSpace(opts.Summary); s != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", s)
	}
	if len(project.TechStack) > 0 {
		fmt.Fprintf(&b, "**Tech Stack:** %s\n\n", strings.Join(project.TechStack, ", "))
	}
	if project.RepositoryURL != "" {
		fmt.Fprintf(&b, "**Repository:** %s\n\n", project.RepositoryURL)
	}
	if project.DemoURL != "" {
		fmt.Fprintf(&b, "**Demo:** %s\n\n", project.DemoURL)
	}

	if opts.IncludeLogs {
		b.WriteString("## Build Log\n\n")
		for _, entry := range sortedOldestFirst(logs) {
			writeEntry(&b, entry, opts)
		}
	}

	b.WriteString(footer)
	return b.String()
}

func writeEntry(b *strings.Builder, entry domain.BuildLog, opts Options) {
	fmt.Fprintf(b, "### %s (%s)\n\n", entry.Title, entry.LogType)
	stamp := ""
	if !entry.CreatedAt.IsZero() {
		created := entry.CreatedAt
		if opts.Location != nil {
			created = created.In(opts.Location)
		}
		stamp = created.Format(TimeLayout)
	}
	fmt.Fprintf(b, "*%s*\n\n", stamp)
	fmt.Fprintf(b, "%s\n\n", entry.Content)

	if opts.IncludeCodeSnippets {
		for _, snippet := range entry.CodeSnippets {
			fmt.Fprintf(b, "```%s\n%s\n```\n\n", snippet.Language, strings.TrimRight(snippet.Code, "\n"))
		}
	}
	if opts.IncludeImages {
		for _, image := range entry.Images {
			fmt.Fprintf(b, "![image](%s)\n\n", resolveImage(image, opts.FileURL))
		}
	}
	if len(entry.Links) > 0 {
		for _, link := range entry.Links {
			title := link.Title
			if title == "" {
				title = link.URL
			}
			fmt.Fprintf(b, "- [%s](%s)\n", title, link.URL)
		}
		b.WriteString("\n")
	}
}

func resolveImage(ref string, fileURL func(string) string) string {
	if fileURL == nil || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return fileURL(ref)
}

func sortedOldestFirst(logs []domain.BuildLog) []domain.BuildLog {
	out := make([]domain.BuildLog, len(logs))
	copy(out, logs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ProgressSummary condenses logs into one line for summary prompts,
// e.g. "3 build logs: 2 update, 1 milestone".
func ProgressSummary(logs []domain.BuildLog) string {
	if len(logs) == 0 {
		return "no build logs yet"
	}
	counts := make(map[domain.LogType]int)
	var order []domain.LogType
	for _, entry := range logs {
		t := entry.LogType
		if t == "" {
			t = domain.LogNote
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	parts := make([]string, 0, len(order))
	for _, t := range order {
		parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
	}
	noun := "build logs"
	if len(logs) == 1 {
		noun = "build log"
	}
	return fmt.Sprintf("%d %s: %s", len(logs), noun, strings.Join(parts, ", "))
}
