package review

import "time"

// Direction tells which party authored the review.
type Direction string

const (
	// DirectionClient is a review OF the client, written by the freelancer.
	DirectionClient Direction = "client"
	// DirectionFreelancer is a review OF the freelancer, written by the client.
	DirectionFreelancer Direction = "freelancer"
)

// Review is a single rating of one party by the other, at most one per
// direction per application.
type Review struct {
	ID            string
	ApplicationID string
	Rating        int
	Comment       string
	AuthorID      string
	RecipientID   string
	Direction     Direction
	CreatedAt     time.Time
}

// SubmitParams carries a review submission.
type SubmitParams struct {
	ApplicationID string
	ReviewerID    string
	Rating        int
	Comment       string
}
