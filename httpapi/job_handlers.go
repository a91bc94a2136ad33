package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gigflow/job"
)

type createJobRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Budget      int64    `json:"budget" binding:"gte=0"`
	Skills      []string `json:"skills"`
}

type addSkillRequest struct {
	Skill string `json:"skill" binding:"required"`
}

type jobResponse struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Budget      int64      `json:"budget"`
	Status      job.Status `json:"status"`
	Skills      []string   `json:"skills,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toJobResponse(j job.Job) jobResponse {
	return jobResponse{
		ID:          j.ID,
		AuthorID:    j.AuthorID,
		Title:       j.Title,
		Description: j.Description,
		Budget:      j.Budget,
		Status:      j.Status,
		Skills:      j.Skills,
		CreatedAt:   j.CreatedAt,
	}
}

func (s *Server) handleCreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	created, err := s.jobs.Create(c.Request.Context(), job.CreateParams{
		AuthorID:    callerID(c),
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		Skills:      req.Skills,
	})
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	c.JSON(http.StatusCreated, toJobResponse(created))
}

func (s *Server) handleGetJob(c *gin.Context) {
	j, err := s.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(j))
}

func (s *Server) handleListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	result, err := s.jobs.List(c.Request.Context(), job.Filters{
		AuthorID: c.Query("author_id"),
		Status:   job.Status(c.Query("status")),
		Skill:    c.Query("skill"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	items := make([]jobResponse, 0, len(result.Items))
	for _, j := range result.Items {
		items = append(items, toJobResponse(j))
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": result.Total})
}

func (s *Server) handleAddJobSkill(c *gin.Context) {
	var req addSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	if err := s.jobs.AddSkill(c.Request.Context(), c.Param("id"), callerID(c), req.Skill); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveJobSkill(c *gin.Context) {
	if err := s.jobs.RemoveSkill(c.Request.Context(), c.Param("id"), callerID(c), c.Param("skill")); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
