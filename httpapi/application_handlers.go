package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gigflow/application"
)

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type applicationResponse struct {
	ID          string                `json:"id"`
	JobID       string                `json:"job_id"`
	ApplicantID string                `json:"applicant_id"`
	Status      application.Status    `json:"status"`
	JobStatus   application.JobStatus `json:"job_status"`
	JobTitle    string                `json:"job_title,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

func toApplicationResponse(a application.Application) applicationResponse {
	return applicationResponse{
		ID:          a.ID,
		JobID:       a.JobID,
		ApplicantID: a.ApplicantID,
		Status:      a.Status,
		JobStatus:   a.JobStatus,
		CreatedAt:   a.CreatedAt,
	}
}

func toDetailsResponse(d application.Details) applicationResponse {
	resp := toApplicationResponse(d.Application)
	resp.JobTitle = d.JobTitle
	return resp
}

func toDetailsResponses(items []application.Details) []applicationResponse {
	out := make([]applicationResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toDetailsResponse(d))
	}
	return out
}

func (s *Server) handleApply(c *gin.Context) {
	created, err := s.applications.Apply(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, toApplicationResponse(created))
}

func (s *Server) handleGetApplication(c *gin.Context) {
	det, err := s.applications.Get(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, toDetailsResponse(det))
}

func (s *Server) handleListMyApplications(c *gin.Context) {
	items, err := s.applications.ListForApplicant(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toDetailsResponses(items)})
}

func (s *Server) handleListJobApplications(c *gin.Context) {
	items, err := s.applications.ListForJob(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toDetailsResponses(items)})
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	det, err := s.applications.UpdateStatus(c.Request.Context(), application.UpdateStatusParams{
		ApplicationID: c.Param("id"),
		NextStatus:    application.Status(req.Status),
		ActorID:       callerID(c),
	})
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, toDetailsResponse(det))
}

func (s *Server) handleRequestClosure(c *gin.Context) {
	det, err := s.applications.RequestClosure(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, toDetailsResponse(det))
}

func (s *Server) handleConfirmClosure(c *gin.Context) {
	det, err := s.applications.ConfirmClosure(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, toDetailsResponse(det))
}

func (s *Server) handleCancelApplication(c *gin.Context) {
	if err := s.applications.Cancel(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteApplication(c *gin.Context) {
	if err := s.applications.Delete(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
