package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gigflow/application"
	"gigflow/auth"
	"gigflow/conversation"
	"gigflow/job"
	"gigflow/profile"
	"gigflow/review"
	"gigflow/ws"
)

// Server bundles the domain services behind the HTTP surface.
type Server struct {
	auth          *auth.Service
	jobs          *job.Service
	applications  *application.Service
	conversations *conversation.Service
	reviews       *review.Service
	profiles      *profile.Service
	hub           *ws.Hub
	wsUpgrader    websocket.Upgrader
	log           zerolog.Logger
}

func NewServer(
	authSvc *auth.Service,
	jobs *job.Service,
	applications *application.Service,
	conversations *conversation.Service,
	reviews *review.Service,
	profiles *profile.Service,
	hub *ws.Hub,
	wsOrigins []string,
	log zerolog.Logger,
) *Server {
	return &Server{
		auth:          authSvc,
		jobs:          jobs,
		applications:  applications,
		conversations: conversations,
		reviews:       reviews,
		profiles:      profiles,
		hub:           hub,
		wsUpgrader:    ws.NewUpgrader(wsOrigins),
		log:           log.With().Str("component", "httpapi").Logger(),
	}
}

// Router wires every surface action to its handler. Each action has its own
// request type; there is no generic action dispatch.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/auth/register", s.handleRegister)
	r.POST("/auth/login", s.handleLogin)

	r.GET("/jobs", s.handleListJobs)
	r.GET("/jobs/:id", s.handleGetJob)
	r.GET("/users/:id/reviews", s.handleListUserReviews)
	r.GET("/users/:id/profile", s.handleGetProfile)

	r.GET("/ws", s.handleWebsocket)

	authed := r.Group("/", requireAuth(s.auth))
	{
		authed.POST("/jobs", requireRole(auth.RoleClient), s.handleCreateJob)
		authed.POST("/jobs/:id/skills", requireRole(auth.RoleClient), s.handleAddJobSkill)
		authed.DELETE("/jobs/:id/skills/:skill", requireRole(auth.RoleClient), s.handleRemoveJobSkill)
		authed.GET("/jobs/:id/applications", s.handleListJobApplications)

		authed.POST("/jobs/:id/applications", requireRole(auth.RoleFreelancer), s.handleApply)
		authed.GET("/applications", s.handleListMyApplications)
		authed.GET("/applications/:id", s.handleGetApplication)
		authed.PATCH("/applications/:id/status", requireRole(auth.RoleClient), s.handleUpdateStatus)
		authed.POST("/applications/:id/closure-request", s.handleRequestClosure)
		authed.POST("/applications/:id/closure-confirm", s.handleConfirmClosure)
		authed.POST("/applications/:id/reviews", s.handleSubmitReview)
		authed.POST("/applications/:id/cancel", requireRole(auth.RoleFreelancer), s.handleCancelApplication)
		authed.DELETE("/applications/:id", requireRole(auth.RoleFreelancer), s.handleDeleteApplication)

		authed.GET("/applications/:id/messages", s.handleListMessages)
		authed.POST("/applications/:id/messages", s.handlePostMessage)

		authed.POST("/profile/skills", requireRole(auth.RoleFreelancer), s.handleAddProfileSkill)
		authed.DELETE("/profile/skills/:skill", requireRole(auth.RoleFreelancer), s.handleRemoveProfileSkill)
	}

	return r
}

func (s *Server) handleWebsocket(c *gin.Context) {
	ws.Handle(s.hub, s.wsUpgrader, s.auth, s.conversations, c.Writer, c.Request)
}
