package job

import "time"

// Status represents the posting lifecycle of a job.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Job mirrors the jobs table.
type Job struct {
	ID          string
	AuthorID    string
	Title       string
	Description string
	Budget      int64
	Status      Status
	Skills      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Summary is the subset of job data other domains need to authorize
// client-side actions and compose notification text.
type Summary struct {
	ID       string
	AuthorID string
	Title    string
}

// Filters narrows job listings.
type Filters struct {
	AuthorID string
	Status   Status
	Skill    string
	Page     int
	PageSize int
}
