package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scholargraph/backend/internal/comments"
	"scholargraph/backend/internal/domain"
)

type commentBody struct {
	Content  string  `json:"content" binding:"required"`
	ParentID *string `json:"parent_id"`
}

type createCommentRequest struct {
	TargetType string `json:"target_type" binding:"required"`
	TargetID   string `json:"target_id" binding:"required"`
	commentBody
}

type updateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) addComment(c *gin.Context, target domain.Target, body commentBody) {
	comment, err := s.comments.AddComment(c.Request.Context(), comments.NewComment{
		Target:   target,
		UserID:   callerID(c),
		Content:  body.Content,
		ParentID: body.ParentID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) createComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	s.addComment(c, domain.Target{Type: req.TargetType, ID: req.TargetID}, req.commentBody)
}

func (s *Server) createPostComment(c *gin.Context) {
	var body commentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondBindError(c, err)
		return
	}
	s.addComment(c, domain.Target{Type: domain.TargetPost, ID: c.Param("id")}, body)
}

func (s *Server) listComments(c *gin.Context) {
	threads, err := s.comments.GetComments(c.Request.Context(), domain.Target{Type: c.Param("type"), ID: c.Param("id")})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, threads)
}

func (s *Server) listPostComments(c *gin.Context) {
	threads, err := s.comments.GetPostComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, threads)
}

func (s *Server) editComment(c *gin.Context, flavor domain.CommentFlavor, commentID string) {
	var req updateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	comment, err := s.comments.UpdateComment(c.Request.Context(), flavor, commentID, callerID(c), req.Content)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (s *Server) removeComment(c *gin.Context, flavor domain.CommentFlavor, commentID string) {
	if err := s.comments.DeleteComment(c.Request.Context(), flavor, commentID, callerID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateComment(c *gin.Context) {
	s.editComment(c, domain.FlavorTarget, c.Param("id"))
}

func (s *Server) deleteComment(c *gin.Context) {
	s.removeComment(c, domain.FlavorTarget, c.Param("id"))
}

func (s *Server) updatePostComment(c *gin.Context) {
	s.editComment(c, domain.FlavorPost, c.Param("comment_id"))
}

func (s *Server) deletePostComment(c *gin.Context) {
	s.removeComment(c, domain.FlavorPost, c.Param("comment_id"))
}
