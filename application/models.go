package application

import "time"

// Status is the client's review verdict on a candidacy.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusShortlisted Status = "SHORTLISTED"
	StatusRejected    Status = "REJECTED"
)

// JobStatus tracks the work lifecycle once a candidacy is in play.
type JobStatus string

const (
	JobStatusActive       JobStatus = "ACTIVE"
	JobStatusPendingClose JobStatus = "PENDING_CLOSE"
	JobStatusCompleted    JobStatus = "COMPLETED"
	JobStatusReviewed     JobStatus = "REVIEWED"
)

// Application identifies one freelancer's candidacy for one job. The
// (job_id, applicant_id) pair is unique.
type Application struct {
	ID          string
	JobID       string
	ApplicantID string
	Status      Status
	JobStatus   JobStatus
	CreatedAt   time.Time
}

// Details joins the application with the job fields needed for ownership
// checks and notification text.
type Details struct {
	Application
	JobAuthorID string
	JobTitle    string
}
