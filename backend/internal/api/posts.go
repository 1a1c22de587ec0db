package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// intQuery reads an integer query parameter, returning fallback when absent
func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidation(key, "must be an integer")
	}
	return v, nil
}

func pageQuery(c *gin.Context) (skip, limit int, err error) {
	if skip, err = intQuery(c, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = intQuery(c, "limit", 0); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}

type createPostRequest struct {
	Title       string   `json:"title" binding:"required,max=300"`
	Content     string   `json:"content" binding:"required"`
	PaperTitle  string   `json:"paper_title" binding:"max=500"`
	KeyInsights []string `json:"key_insights" binding:"max=20"`
	PaperID     *string  `json:"paper_id"`
}

func (s *Server) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	post, err := s.store.CreatePost(c.Request.Context(), domain.Post{
		AuthorID:    callerID(c),
		Title:       req.Title,
		Content:     req.Content,
		PaperTitle:  req.PaperTitle,
		KeyInsights: req.KeyInsights,
		PaperID:     req.PaperID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// listUserPosts lists one author's posts; without user_id it lists the caller's
func (s *Server) listUserPosts(c *gin.Context) {
	skip, limit, err := pageQuery(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	viewer := callerID(c)
	author := c.DefaultQuery("user_id", viewer)

	items, err := s.feed.UserPosts(c.Request.Context(), author, viewer, skip, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// getFeed serves offset pages as a bare list. Passing cursor, even empty,
// switches to keyset pages with a next_cursor token.
func (s *Server) getFeed(c *gin.Context) {
	skip, limit, err := pageQuery(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	userID := callerID(c)

	token, keyset := c.GetQuery("cursor")
	if !keyset {
		items, err := s.feed.GetFeed(ctx, userID, skip, limit)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}

	var cursor *domain.Cursor
	if token != "" {
		if cursor, err = domain.DecodeCursor(token); err != nil {
			s.respondError(c, apperrors.NewValidation("cursor", err.Error()))
			return
		}
	}
	page, err := s.feed.GetFeedPage(ctx, userID, cursor, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := s.store.GetPost(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	items, err := s.feed.Decorate(ctx, callerID(c), []domain.Post{*post})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items[0])
}

func (s *Server) updatePost(c *gin.Context) {
	var patch domain.PostPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.respondBindError(c, err)
		return
	}
	if err := s.validate.Struct(patch); err != nil {
		s.respondBindError(c, err)
		return
	}

	post, err := s.store.UpdatePost(c.Request.Context(), c.Param("id"), callerID(c), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) deletePost(c *gin.Context) {
	if err := s.store.DeletePost(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) likePost(c *gin.Context) {
	s.engage(c, s.store.LikePost, http.StatusCreated)
}

func (s *Server) unlikePost(c *gin.Context) {
	s.engage(c, s.store.UnlikePost, http.StatusNoContent)
}

func (s *Server) savePost(c *gin.Context) {
	s.engage(c, s.store.SavePost, http.StatusCreated)
}

func (s *Server) unsavePost(c *gin.Context) {
	s.engage(c, s.store.UnsavePost, http.StatusNoContent)
}

// engage runs a like/save mutation and answers with the fresh counters
func (s *Server) engage(c *gin.Context, mutate func(ctx context.Context, postID, userID string) error, status int) {
	ctx := c.Request.Context()
	postID, userID := c.Param("id"), callerID(c)

	if err := mutate(ctx, postID, userID); err != nil {
		s.respondError(c, err)
		return
	}
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}

	eng, err := s.store.PostEngagement(ctx, postID, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(status, eng)
}
