package graph

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"scholargraph/backend/internal/domain"
)

// ============================================================================
// Library Operations
// ============================================================================

func paperFromMap(m map[string]interface{}) domain.Paper {
	return domain.Paper{
		ID:            getStringFromMap(m, "id", ""),
		Title:         getStringFromMap(m, "title", ""),
		Abstract:      getStringFromMap(m, "abstract", ""),
		Authors:       getStringSliceFromMap(m, "authors"),
		PublishedDate: getOptionalTimeFromMap(m, "published_date"),
		UploaderID:    getStringFromMap(m, "uploader_id", ""),
	}
}

func scrapFromMap(m map[string]interface{}) domain.Scrap {
	return domain.Scrap{
		ID:          getStringFromMap(m, "id", ""),
		UserID:      getStringFromMap(m, "user_id", ""),
		PaperID:     getOptionalStringFromMap(m, "paper_id"),
		WorkspaceID: getOptionalStringFromMap(m, "workspace_id"),
		Content:     getStringFromMap(m, "content", ""),
		Note:        getStringFromMap(m, "note", ""),
		PageNumber:  getOptionalIntFromMap(m, "page_number"),
		CreatedAt:   getTimeFromMap(m, "created_at"),
	}
}

// CreatePaper creates paper metadata
func (r *Repository) CreatePaper(ctx context.Context, p domain.Paper) (*domain.Paper, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	var published interface{}
	if p.PublishedDate != nil {
		published = timestamp(*p.PublishedDate)
	}

	query := `
		CREATE (p:Paper {
			id: $id,
			title: $title,
			abstract: $abstract,
			authors: $authors,
			uploader_id: $uploaderID,
			created_at: datetime($now)
		})
		SET p.published_date = CASE WHEN $published IS NULL THEN null ELSE datetime($published) END
		RETURN p {.*} as paper
	`
	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"id":         p.ID,
		"title":      p.Title,
		"abstract":   p.Abstract,
		"authors":    stringsParam(p.Authors),
		"uploaderID": p.UploaderID,
		"published":  published,
		"now":        timestamp(r.now()),
	})
	if err != nil {
		return nil, unavailable("create paper", err)
	}
	if len(records) == 0 {
		return nil, unavailable("create paper", errors.New("no record returned"))
	}

	created := paperFromMap(getMapFromRecord(records[0], "paper"))
	return &created, nil
}

// CreateScrap creates a scrap. A set workspace_id marks it as shared.
func (r *Repository) CreateScrap(ctx context.Context, s domain.Scrap) (*domain.Scrap, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	var page interface{}
	if s.PageNumber != nil {
		page = *s.PageNumber
	}

	query := `
		CREATE (s:Scrap {
			id: $id,
			user_id: $userID,
			content: $content,
			note: $note,
			created_at: datetime($now)
		})
		SET s.paper_id = $paperID, s.workspace_id = $workspaceID, s.page_number = $page
		RETURN s {.*} as scrap
	`
	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"id":          s.ID,
		"userID":      s.UserID,
		"content":     s.Content,
		"note":        s.Note,
		"paperID":     optionalParam(s.PaperID),
		"workspaceID": optionalParam(s.WorkspaceID),
		"page":        page,
		"now":         timestamp(r.now()),
	})
	if err != nil {
		return nil, unavailable("create scrap", err)
	}
	if len(records) == 0 {
		return nil, unavailable("create scrap", errors.New("no record returned"))
	}

	created := scrapFromMap(getMapFromRecord(records[0], "scrap"))
	return &created, nil
}
