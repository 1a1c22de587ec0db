package graph

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// ============================================================================
// Comment Operations
// ============================================================================

// Target comments live on :Comment nodes keyed by target_type and target_id.
// Post comments live on :PostComment nodes keyed by post_id.

func commentLabel(flavor domain.CommentFlavor) string {
	if flavor == domain.FlavorPost {
		return "PostComment"
	}
	return "Comment"
}

func commentFromMap(flavor domain.CommentFlavor, m map[string]interface{}) domain.Comment {
	c := domain.Comment{
		ID:        getStringFromMap(m, "id", ""),
		UserID:    getStringFromMap(m, "user_id", ""),
		Content:   getStringFromMap(m, "content", ""),
		ParentID:  getOptionalStringFromMap(m, "parent_id"),
		CreatedAt: getTimeFromMap(m, "created_at"),
		UpdatedAt: getTimeFromMap(m, "updated_at"),
	}
	if flavor == domain.FlavorPost {
		c.Target = domain.Target{Type: domain.TargetPost, ID: getStringFromMap(m, "post_id", "")}
	} else {
		c.Target = domain.Target{
			Type: getStringFromMap(m, "target_type", ""),
			ID:   getStringFromMap(m, "target_id", ""),
		}
	}
	return c
}

var targetExistsQueries = map[string]string{
	domain.TargetPaper:      `MATCH (n:Paper {id: $id}) RETURN count(n) > 0 as found`,
	domain.TargetScrap:      `MATCH (n:Scrap {id: $id}) RETURN count(n) > 0 as found`,
	domain.TargetGroupPaper: `MATCH (:Workspace)-[h:HAS_PAPER]->(:Paper {id: $id}) RETURN count(h) > 0 as found`,
	domain.TargetGroupScrap: `MATCH (n:Scrap {id: $id}) WHERE n.workspace_id IS NOT NULL RETURN count(n) > 0 as found`,
	domain.TargetPost:       `MATCH (n:Post {id: $id}) RETURN count(n) > 0 as found`,
}

// TargetExists reports whether a commentable entity exists
func (r *Repository) TargetExists(ctx context.Context, t domain.Target) (bool, error) {
	query, ok := targetExistsQueries[t.Type]
	if !ok {
		return false, nil
	}

	records, err := r.collect(ctx, neo4j.AccessModeRead, query, map[string]interface{}{"id": t.ID})
	if err != nil {
		return false, unavailable("target exists", err)
	}
	return len(records) > 0 && getBoolFromRecord(records[0], "found"), nil
}

// ListComments returns every comment on the target in creation order
func (r *Repository) ListComments(ctx context.Context, t domain.Target) ([]domain.Comment, error) {
	flavor := t.Flavor()

	var (
		query  string
		params map[string]interface{}
	)
	if flavor == domain.FlavorPost {
		query = `
			MATCH (c:PostComment {post_id: $id})
			RETURN c {.*} as comment
			ORDER BY c.created_at ASC, c.id ASC
		`
		params = map[string]interface{}{"id": t.ID}
	} else {
		query = `
			MATCH (c:Comment {target_type: $type, target_id: $id})
			RETURN c {.*} as comment
			ORDER BY c.created_at ASC, c.id ASC
		`
		params = map[string]interface{}{"type": t.Type, "id": t.ID}
	}

	records, err := r.collect(ctx, neo4j.AccessModeRead, query, params)
	if err != nil {
		return nil, unavailable("list comments", err)
	}

	out := make([]domain.Comment, 0, len(records))
	for _, record := range records {
		out = append(out, commentFromMap(flavor, getMapFromRecord(record, "comment")))
	}
	return out, nil
}

// GetComment loads one comment of the given flavor
func (r *Repository) GetComment(ctx context.Context, flavor domain.CommentFlavor, commentID string) (*domain.Comment, error) {
	query := `MATCH (c:` + commentLabel(flavor) + ` {id: $id}) RETURN c {.*} as comment`
	records, err := r.collect(ctx, neo4j.AccessModeRead, query, map[string]interface{}{"id": commentID})
	if err != nil {
		return nil, unavailable("get comment", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFound("comment", commentID)
	}

	c := commentFromMap(flavor, getMapFromRecord(records[0], "comment"))
	return &c, nil
}

// CreateComment creates a comment node of the target's flavor
func (r *Repository) CreateComment(ctx context.Context, c domain.Comment) (*domain.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now

	flavor := c.Target.Flavor()
	params := map[string]interface{}{
		"id":       c.ID,
		"userID":   c.UserID,
		"content":  c.Content,
		"parentID": optionalParam(c.ParentID),
		"targetID": c.Target.ID,
		"type":     c.Target.Type,
		"now":      timestamp(now),
	}

	var query string
	if flavor == domain.FlavorPost {
		query = `
			CREATE (c:PostComment {
				id: $id,
				post_id: $targetID,
				user_id: $userID,
				content: $content,
				created_at: datetime($now),
				updated_at: datetime($now)
			})
			SET c.parent_id = $parentID
			RETURN c {.*} as comment
		`
	} else {
		query = `
			CREATE (c:Comment {
				id: $id,
				target_type: $type,
				target_id: $targetID,
				user_id: $userID,
				content: $content,
				created_at: datetime($now),
				updated_at: datetime($now)
			})
			SET c.parent_id = $parentID
			RETURN c {.*} as comment
		`
	}

	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, params)
	if err != nil {
		return nil, unavailable("create comment", err)
	}
	if len(records) == 0 {
		return nil, unavailable("create comment", errors.New("no record returned"))
	}

	created := commentFromMap(flavor, getMapFromRecord(records[0], "comment"))
	return &created, nil
}

// UpdateComment replaces the content of a comment owned by userID
func (r *Repository) UpdateComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID, content string) (*domain.Comment, error) {
	query := `
		MATCH (c:` + commentLabel(flavor) + ` {id: $id, user_id: $userID})
		SET c.content = $content, c.updated_at = datetime($now)
		RETURN c {.*} as comment
	`
	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"id":      commentID,
		"userID":  userID,
		"content": content,
		"now":     timestamp(r.now()),
	})
	if err != nil {
		return nil, unavailable("update comment", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFound("comment", commentID)
	}

	c := commentFromMap(flavor, getMapFromRecord(records[0], "comment"))
	return &c, nil
}

// DeleteComment removes a comment owned by userID and any replies to it
func (r *Repository) DeleteComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID string) error {
	label := commentLabel(flavor)

	_, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		params := map[string]interface{}{"id": commentID, "userID": userID}

		record, err := single(ctx, tx, `
			MATCH (c:`+label+` {id: $id, user_id: $userID})
			DELETE c
			RETURN count(c) as removed
		`, params)
		if err != nil {
			return nil, err
		}
		if record == nil || getIntFromRecord(record, "removed") == 0 {
			return nil, apperrors.NewNotFound("comment", commentID)
		}

		_, err = tx.Run(ctx, `MATCH (r:`+label+` {parent_id: $id}) DELETE r`, params)
		return nil, err
	})
	if err != nil {
		return unavailable("delete comment", err)
	}
	return nil
}
