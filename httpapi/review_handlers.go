package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gigflow/profile"
	"gigflow/review"
)

type submitReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type reviewResponse struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"application_id"`
	Rating        int              `json:"rating"`
	Comment       string           `json:"comment"`
	AuthorID      string           `json:"author_id"`
	RecipientID   string           `json:"recipient_id"`
	Direction     review.Direction `json:"direction"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toReviewResponse(r review.Review) reviewResponse {
	return reviewResponse{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		Rating:        r.Rating,
		Comment:       r.Comment,
		AuthorID:      r.AuthorID,
		RecipientID:   r.RecipientID,
		Direction:     r.Direction,
		CreatedAt:     r.CreatedAt,
	}
}

func (s *Server) handleSubmitReview(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	rev, err := s.reviews.Submit(c.Request.Context(), review.SubmitParams{
		ApplicationID: c.Param("id"),
		ReviewerID:    callerID(c),
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	c.JSON(http.StatusCreated, toReviewResponse(rev))
}

func (s *Server) handleListUserReviews(c *gin.Context) {
	reviews, err := s.reviews.ListForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	items := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, toReviewResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type profileResponse struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Role        string    `json:"role"`
	Bio         *string   `json:"bio,omitempty"`
	Skills      []string  `json:"skills,omitempty"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProfileResponse(p profile.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		FullName:    p.FullName,
		Role:        string(p.Role),
		Bio:         p.Bio,
		Skills:      p.Skills,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		CreatedAt:   p.CreatedAt,
	}
}

func (s *Server) handleGetProfile(c *gin.Context) {
	p, err := s.profiles.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(p))
}

func (s *Server) handleAddProfileSkill(c *gin.Context) {
	var req addSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}
	if err := s.profiles.AddSkill(c.Request.Context(), callerID(c), req.Skill); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveProfileSkill(c *gin.Context) {
	if err := s.profiles.RemoveSkill(c.Request.Context(), callerID(c), c.Param("skill")); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
