package application

// ValidStatus reports whether s is a known review status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusShortlisted, StatusRejected:
		return true
	default:
		return false
	}
}

// ValidStatusTransition reports whether the review status may move from
// current to next. The only permitted moves are out of PENDING; SHORTLISTED
// and REJECTED are terminal for update_status.
func ValidStatusTransition(current, next Status) bool {
	if current != StatusPending {
		return false
	}
	return next == StatusShortlisted || next == StatusRejected
}

// jobStatusRank orders the work lifecycle. Transitions must move strictly
// forward, except that a repeated closure request stays at PENDING_CLOSE.
func jobStatusRank(s JobStatus) int {
	switch s {
	case JobStatusActive:
		return 0
	case JobStatusPendingClose:
		return 1
	case JobStatusCompleted:
		return 2
	case JobStatusReviewed:
		return 3
	default:
		return -1
	}
}

// ValidJobStatusTransition reports whether the work status may move from
// current to next.
func ValidJobStatusTransition(current, next JobStatus) bool {
	cur, nxt := jobStatusRank(current), jobStatusRank(next)
	if cur < 0 || nxt < 0 {
		return false
	}
	if next == JobStatusPendingClose {
		// Repeated closure requests are tolerated; later states are not
		// allowed to regress.
		return cur <= jobStatusRank(JobStatusPendingClose)
	}
	return nxt == cur+1
}

// IsParticipant reports whether userID is one of the two parties of the
// application.
func (d Details) IsParticipant(userID string) bool {
	return userID == d.ApplicantID || userID == d.JobAuthorID
}

// OtherParty returns the counterpart of userID on the application. Callers
// must have checked participation first.
func (d Details) OtherParty(userID string) string {
	if userID == d.ApplicantID {
		return d.JobAuthorID
	}
	return d.ApplicantID
}
