package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scholargraph/backend/internal/domain"
	"scholargraph/backend/internal/ranking"
	apperrors "scholargraph/backend/pkg/errors"
)

// interestsQuery accepts ?interests=a,b and repeated ?interests=a&interests=b
func interestsQuery(c *gin.Context) []string {
	var out []string
	for _, raw := range c.QueryArray("interests") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) recommendWorkspaces(c *gin.Context) {
	req := ranking.Request{
		UserID:    callerID(c),
		Interests: interestsQuery(c),
	}
	if field, ok := c.GetQuery("research_field"); ok {
		req.ResearchField = &field
	}

	recs, err := s.recommender.Recommend(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

type createWorkspaceRequest struct {
	Name           string   `json:"name" binding:"required,max=200"`
	Description    string   `json:"description" binding:"max=5000"`
	ResearchField  string   `json:"research_field" binding:"max=100"`
	ResearchTopics []string `json:"research_topics" binding:"max=50"`
	IsPublic       *bool    `json:"is_public"`
}

func (s *Server) createWorkspace(c *gin.Context) {
	var req createWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	ws, err := s.store.CreateWorkspace(c.Request.Context(), domain.Workspace{
		Name:           req.Name,
		Description:    req.Description,
		ResearchField:  req.ResearchField,
		ResearchTopics: req.ResearchTopics,
		IsPublic:       isPublic,
		OwnerID:        callerID(c),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ws)
}

func (s *Server) getWorkspace(c *gin.Context) {
	ws, err := s.store.GetWorkspace(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (s *Server) updateWorkspace(c *gin.Context) {
	var patch domain.WorkspacePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.respondBindError(c, err)
		return
	}
	if err := s.validate.Struct(patch); err != nil {
		s.respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	current, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if current.OwnerID != callerID(c) {
		s.respondError(c, apperrors.NewForbidden("update workspace", "only the owner may edit a workspace"))
		return
	}

	ws, err := s.store.UpdateWorkspace(ctx, id, patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (s *Server) joinWorkspace(c *gin.Context) {
	member, err := s.store.JoinWorkspace(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (s *Server) leaveWorkspace(c *gin.Context) {
	if err := s.store.LeaveWorkspace(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addWorkspacePaper(c *gin.Context) {
	var req struct {
		PaperID string `json:"paper_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	if err := s.store.AddWorkspacePaper(c.Request.Context(), c.Param("id"), req.PaperID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "added"})
}
