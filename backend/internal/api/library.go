package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scholargraph/backend/internal/domain"
)

type createPaperRequest struct {
	Title         string     `json:"title" binding:"required,max=500"`
	Abstract      string     `json:"abstract"`
	Authors       []string   `json:"authors"`
	PublishedDate *time.Time `json:"published_date"`
}

func (s *Server) createPaper(c *gin.Context) {
	var req createPaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	paper, err := s.store.CreatePaper(c.Request.Context(), domain.Paper{
		Title:         req.Title,
		Abstract:      req.Abstract,
		Authors:       req.Authors,
		PublishedDate: req.PublishedDate,
		UploaderID:    callerID(c),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, paper)
}

type createScrapRequest struct {
	Content     string  `json:"content" binding:"required"`
	Note        string  `json:"note"`
	PaperID     *string `json:"paper_id"`
	WorkspaceID *string `json:"workspace_id"`
	PageNumber  *int    `json:"page_number" binding:"omitempty,min=1"`
}

func (s *Server) createScrap(c *gin.Context) {
	var req createScrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	scrap, err := s.store.CreateScrap(c.Request.Context(), domain.Scrap{
		UserID:      callerID(c),
		PaperID:     req.PaperID,
		WorkspaceID: req.WorkspaceID,
		Content:     req.Content,
		Note:        req.Note,
		PageNumber:  req.PageNumber,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, scrap)
}
