package store

import "time"

type User struct {
	ID           string
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Bio          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Passion struct {
	ID          string
	Name        string
	Slug        string
	Description string
	ParentID    *string
	Icon        string
	Color       string
	IsCustom    bool
	CreatedAt   time.Time
}

type UserPassion struct {
	UserID    string
	PassionID string
	CreatedAt time.Time
}

type Project struct {
	ID          string
	UserID      string
	PassionID   string
	Title       string
	Description string
	Status      string // active, paused, completed, archived
	Stage       string // idea, planning, development, testing, launch, maintenance
	Privacy     string // private, friends, public
	StartDate   *time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Milestone struct {
	ID          string
	UserID      string
	ProjectID   string
	ParentID    *string
	Title       string
	Description string
	Status      string // planned, active, completed, skipped
	TargetDate  *time.Time
	CompletedAt *time.Time
	Order       int
	CreatedAt   time.Time
}

type Task struct {
	ID          string
	UserID      string
	ProjectID   *string
	MilestoneID *string
	Title       string
	Description string
	Completed   bool
	CompletedAt *time.Time
	DueDate     *time.Time
	Order       int
	CreatedAt   time.Time
}

type Entry struct {
	ID          string
	UserID      string
	ProjectID   string
	MilestoneID *string
	Title       string
	Content     string
	Type        string // progress, milestone, note, media, link
	Privacy     string // private, friends, public
	MediaURLs   []string
	Links       []string
	Tags        []string
	PublishedAt *time.Time // nil = draft
	CreatedAt   time.Time
}

type TimeEntry struct {
	ID          string
	UserID      string
	ProjectID   *string
	TaskID      *string
	MilestoneID *string
	Description string
	Duration    int // minutes, 1..1440
	StartedAt   time.Time
	EndedAt     time.Time
	CreatedAt   time.Time
}

// MilestoneRef is the trimmed child shape attached to milestone views.
type MilestoneRef struct {
	ID          string
	Title       string
	Status      string
	CompletedAt *time.Time
}

// TaskRef is the trimmed task shape attached to milestone views.
type TaskRef struct {
	ID          string
	Title       string
	Completed   bool
	CompletedAt *time.Time
}

// MilestoneDetail is a milestone with its direct children and tasks loaded,
// one level deep. Progress is derived from it at the service layer.
type MilestoneDetail struct {
	Milestone
	Children []MilestoneRef
	Tasks    []TaskRef
}
