package domain

import "time"

// LogType classifies a build log entry.
type LogType string

const (
	LogUpdate    LogType = "update"
	LogMilestone LogType = "milestone"
	LogBugFix    LogType = "bug_fix"
	LogFeature   LogType = "feature"
	LogNote      LogType = "note"
)

// Valid reports whether t is a known log type.
func (t LogType) Valid() bool {
	switch t {
	case LogUpdate, LogMilestone, LogBugFix, LogFeature, LogNote:
		return true
	}
	return false
}

// LogTypes lists log types in display order.
func LogTypes() []LogType {
	return []LogType{LogUpdate, LogMilestone, LogFeature, LogBugFix, LogNote}
}

// CodeSnippet is a fenced code block attached to a log.
type CodeSnippet struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Link is a titled reference attached to a log.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// BuildLog is a single dated journal entry attached to a project.
type BuildLog struct {
	ID           string
	ProjectID    string
	Title        string
	Content      string
	LogType      LogType
	Tags         []string
	CodeSnippets []CodeSnippet
	Images       []string
	Links        []Link
	CreatedAt    time.Time
}

// BuildLogPatch carries a partial build log update.
type BuildLogPatch struct {
	Title        *string
	Content      *string
	LogType      *LogType
	Tags         *[]string
	CodeSnippets *[]CodeSnippet
	Images       *[]string
	Links        *[]Link
}
