package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gigflow/conversation"
)

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type messageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       *string   `json:"sender_id,omitempty"`
	Content        string    `json:"content"`
	IsSystem       bool      `json:"is_system_message"`
	CreatedAt      time.Time `json:"created_at"`
}

func toMessageResponse(m conversation.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		IsSystem:       m.IsSystem,
		CreatedAt:      m.CreatedAt,
	}
}

func (s *Server) handleListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	caller := callerID(c)

	// Participation is checked against the application first so a stranger
	// cannot distinguish "no conversation yet" from "not yours".
	if _, err := s.applications.Get(ctx, c.Param("id"), caller); err != nil {
		writeError(c, s.log, err)
		return
	}

	conv, err := s.conversations.Find(ctx, c.Param("id"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	msgs, err := s.conversations.Messages(ctx, conv.ID, caller)
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	items := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, toMessageResponse(m))
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conv.ID,
		"is_locked":       conv.IsLocked,
		"items":           items,
	})
}

func (s *Server) handlePostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	caller := callerID(c)

	if _, err := s.applications.Get(ctx, c.Param("id"), caller); err != nil {
		writeError(c, s.log, err)
		return
	}

	conv, err := s.conversations.GetOrCreate(ctx, c.Param("id"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	msg, err := s.conversations.Append(ctx, conv.ID, caller, req.Content)
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	c.JSON(http.StatusCreated, toMessageResponse(msg))
}
