package domain

import "time"

// ProjectStatus enumerates project lifecycle states.
type ProjectStatus string

const (
	StatusPlanning   ProjectStatus = "planning"
	StatusInProgress ProjectStatus = "in_progress"
	StatusCompleted  ProjectStatus = "completed"
	StatusOnHold     ProjectStatus = "on_hold"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusPlanning, StatusInProgress, StatusCompleted, StatusOnHold:
		return true
	}
	return false
}

// ProjectStatuses lists statuses in display order.
func ProjectStatuses() []ProjectStatus {
	return []ProjectStatus{StatusPlanning, StatusInProgress, StatusCompleted, StatusOnHold}
}

// Project is a user-owned container for build logs.
type Project struct {
	ID            string
	UserID        string
	Name          string
	Description   string
	TechStack     []string
	RepositoryURL string
	DemoURL       string
	Tags          []string
	Status        ProjectStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProjectPatch carries a partial project update; nil fields are untouched.
type ProjectPatch struct {
	Name          *string
	Description   *string
	TechStack     *[]string
	RepositoryURL *string
	DemoURL       *string
	Tags          *[]string
	Status        *ProjectStatus
	UpdatedAt     time.Time
}
