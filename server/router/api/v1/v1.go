// Package v1 exposes the HTTP surface: chat, streaming chat,
// conversation listings, and the A2A endpoint.
package v1

import (
	"github.com/labstack/echo/v5"

	"github.com/strandlabs/strand/server/agent"
	"github.com/strandlabs/strand/server/profile"
)

// APIV1Service owns the HTTP handlers and their collaborators.
type APIV1Service struct {
	Service *agent.Service
	Profile *profile.Profile
}

// NewAPIV1Service creates the handler set.
func NewAPIV1Service(svc *agent.Service, p *profile.Profile) *APIV1Service {
	return &APIV1Service{Service: svc, Profile: p}
}

// RegisterRoutes attaches all routes to e.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.healthz)

	e.POST("/chat", s.handleChat)
	e.POST("/chat/stream", s.handleChatStream)
	e.GET("/conversations", s.listConversations)
	e.GET("/conversations/:threadID", s.getConversation)

	e.POST("/a2a/:agentID", s.handleA2A)
}
