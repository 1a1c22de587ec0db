package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scholargraph/backend/internal/domain"
)

func (s *Server) getMe(c *gin.Context) {
	s.respondUser(c, callerID(c))
}

func (s *Server) getUser(c *gin.Context) {
	s.respondUser(c, c.Param("id"))
}

func (s *Server) respondUser(c *gin.Context, userID string) {
	ctx := c.Request.Context()
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	stats, err := s.store.FollowStats(ctx, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "stats": stats})
}

// listFollowing returns the caller's followees in follow order
func (s *Server) listFollowing(c *gin.Context) {
	ctx := c.Request.Context()
	ids, err := s.store.FolloweeIDs(ctx, callerID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	users, err := s.store.UsersByIDs(ctx, ids)
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, u)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.store.FollowStats(c.Request.Context(), callerID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) follow(c *gin.Context) {
	if err := s.store.Follow(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "following"})
}

func (s *Server) unfollow(c *gin.Context) {
	if err := s.store.Unfollow(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateProfile(c *gin.Context) {
	var patch domain.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.respondBindError(c, err)
		return
	}
	if err := s.validate.Struct(patch); err != nil {
		s.respondBindError(c, err)
		return
	}

	u, err := s.store.UpdateProfile(c.Request.Context(), callerID(c), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
