package graph

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"scholargraph/backend/internal/constants"
	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// ============================================================================
// Post Operations
// ============================================================================

func postFromMap(m map[string]interface{}) domain.Post {
	return domain.Post{
		ID:          getStringFromMap(m, "id", ""),
		AuthorID:    getStringFromMap(m, "author_id", ""),
		Title:       getStringFromMap(m, "title", ""),
		Content:     getStringFromMap(m, "content", ""),
		PaperTitle:  getStringFromMap(m, "paper_title", ""),
		KeyInsights: getStringSliceFromMap(m, "key_insights"),
		PaperID:     getOptionalStringFromMap(m, "paper_id"),
		CreatedAt:   getTimeFromMap(m, "created_at"),
		UpdatedAt:   getTimeFromMap(m, "updated_at"),
	}
}

func postParams(p domain.Post) map[string]interface{} {
	return map[string]interface{}{
		"id":           p.ID,
		"author_id":    p.AuthorID,
		"title":        p.Title,
		"content":      p.Content,
		"paper_title":  p.PaperTitle,
		"key_insights": stringsParam(p.KeyInsights),
		"paper_id":     optionalParam(p.PaperID),
		"created_at":   timestamp(p.CreatedAt),
		"updated_at":   timestamp(p.UpdatedAt),
	}
}

// CreatePost creates a post and links it to its author
func (r *Repository) CreatePost(ctx context.Context, p domain.Post) (*domain.Post, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	p.UpdatedAt = p.CreatedAt

	query := `
		MERGE (a:User {id: $author_id})
		CREATE (p:Post {
			id: $id,
			author_id: $author_id,
			title: $title,
			content: $content,
			paper_title: $paper_title,
			key_insights: $key_insights,
			created_at: datetime($created_at),
			updated_at: datetime($updated_at)
		})
		SET p.paper_id = $paper_id
		CREATE (a)-[:AUTHORED]->(p)
		RETURN p {.*} as post
	`
	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, postParams(p))
	if err != nil {
		return nil, unavailable("create post", err)
	}
	if len(records) == 0 {
		return nil, unavailable("create post", errors.New("no record returned"))
	}

	created := postFromMap(getMapFromRecord(records[0], "post"))
	return &created, nil
}

// GetPost loads one post
func (r *Repository) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	records, err := r.collect(ctx, neo4j.AccessModeRead,
		`MATCH (p:Post {id: $postID}) RETURN p {.*} as post`,
		map[string]interface{}{"postID": postID},
	)
	if err != nil {
		return nil, unavailable("get post", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFound("post", postID)
	}

	p := postFromMap(getMapFromRecord(records[0], "post"))
	return &p, nil
}

// loadOwnedPost reads a post inside tx and checks it belongs to authorID
func loadOwnedPost(ctx context.Context, tx neo4j.ManagedTransaction, postID, authorID, action string) (*domain.Post, error) {
	record, err := single(ctx, tx, `MATCH (p:Post {id: $postID}) RETURN p {.*} as post`,
		map[string]interface{}{"postID": postID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.NewNotFound("post", postID)
	}

	p := postFromMap(getMapFromRecord(record, "post"))
	if p.AuthorID != authorID {
		return nil, apperrors.NewForbidden(action, "only the author may change a post")
	}
	return &p, nil
}

// UpdatePost applies a partial update to a post owned by authorID
func (r *Repository) UpdatePost(ctx context.Context, postID, authorID string, patch domain.PostPatch) (*domain.Post, error) {
	updated, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		p, err := loadOwnedPost(ctx, tx, postID, authorID, "update post")
		if err != nil {
			return nil, err
		}

		patch.Apply(p)
		p.UpdatedAt = r.now()

		query := `
			MATCH (p:Post {id: $id})
			SET p.title = $title,
			    p.content = $content,
			    p.paper_title = $paper_title,
			    p.key_insights = $key_insights,
			    p.paper_id = $paper_id,
			    p.updated_at = datetime($updated_at)
		`
		if _, err := tx.Run(ctx, query, postParams(*p)); err != nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, unavailable("update post", err)
	}
	return updated.(*domain.Post), nil
}

// DeletePost removes a post owned by authorID together with its likes, saves and comments
func (r *Repository) DeletePost(ctx context.Context, postID, authorID string) error {
	_, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		if _, err := loadOwnedPost(ctx, tx, postID, authorID, "delete post"); err != nil {
			return nil, err
		}

		params := map[string]interface{}{"postID": postID}
		if _, err := tx.Run(ctx, `MATCH (c:PostComment {post_id: $postID}) DETACH DELETE c`, params); err != nil {
			return nil, err
		}
		// likes, saves and the authored edge go with the node
		_, err := tx.Run(ctx, `MATCH (p:Post {id: $postID}) DETACH DELETE p`, params)
		return nil, err
	})
	if err != nil {
		return unavailable("delete post", err)
	}

	r.logger.Info("Post deleted", zap.String("post_id", postID))
	return nil
}

// PostsByAuthors lists posts by any of q.AuthorIDs, newest first with id as
// tie-break. A cursor replaces SKIP.
func (r *Repository) PostsByAuthors(ctx context.Context, q domain.PostQuery) ([]domain.Post, error) {
	if len(q.AuthorIDs) == 0 {
		return []domain.Post{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = constants.DefaultFeedLimit
	}

	params := map[string]interface{}{
		"authorIDs": q.AuthorIDs,
		"skip":      0,
		"limit":     limit,
	}
	where := "p.author_id IN $authorIDs"
	if q.Before != nil {
		where += " AND (p.created_at < datetime($before) OR (p.created_at = datetime($before) AND p.id < $beforeID))"
		params["before"] = timestamp(q.Before.CreatedAt)
		params["beforeID"] = q.Before.ID
	} else if q.Skip > 0 {
		params["skip"] = q.Skip
	}

	query := `
		MATCH (p:Post)
		WHERE ` + where + `
		RETURN p {.*} as post
		ORDER BY p.created_at DESC, p.id DESC
		SKIP $skip
		LIMIT $limit
	`
	records, err := r.collect(ctx, neo4j.AccessModeRead, query, params)
	if err != nil {
		return nil, unavailable("posts by authors", err)
	}

	out := make([]domain.Post, 0, len(records))
	for _, record := range records {
		out = append(out, postFromMap(getMapFromRecord(record, "post")))
	}
	return out, nil
}

// PostEngagement returns the counters for a post and whether viewerID liked or saved it
func (r *Repository) PostEngagement(ctx context.Context, postID, viewerID string) (domain.Engagement, error) {
	query := `
		MATCH (p:Post {id: $postID})
		RETURN
			COUNT { (:User)-[:LIKED]->(p) } as likes,
			COUNT { (:User)-[:SAVED]->(p) } as saves,
			COUNT { (c:PostComment) WHERE c.post_id = $postID } as comments,
			EXISTS { (:User {id: $viewerID})-[:LIKED]->(p) } as is_liked,
			EXISTS { (:User {id: $viewerID})-[:SAVED]->(p) } as is_saved
	`
	records, err := r.collect(ctx, neo4j.AccessModeRead, query, map[string]interface{}{
		"postID":   postID,
		"viewerID": viewerID,
	})
	if err != nil {
		return domain.Engagement{}, unavailable("post engagement", err)
	}
	if len(records) == 0 {
		return domain.Engagement{}, nil
	}

	record := records[0]
	return domain.Engagement{
		Likes:    getIntFromRecord(record, "likes"),
		Saves:    getIntFromRecord(record, "saves"),
		Comments: getIntFromRecord(record, "comments"),
		IsLiked:  getBoolFromRecord(record, "is_liked"),
		IsSaved:  getBoolFromRecord(record, "is_saved"),
	}, nil
}

// mark merges a LIKED or SAVED edge. Marking twice is a no-op.
func (r *Repository) mark(ctx context.Context, op, rel, postID, userID string) error {
	query := `
		MATCH (p:Post {id: $postID})
		MERGE (u:User {id: $userID})
		MERGE (u)-[e:` + rel + `]->(p)
		ON CREATE SET e.created_at = datetime($now)
		RETURN p.id as id
	`
	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"postID": postID,
		"userID": userID,
		"now":    timestamp(r.now()),
	})
	if err != nil {
		return unavailable(op, err)
	}
	if len(records) == 0 {
		return apperrors.NewNotFound("post", postID)
	}
	return nil
}

// unmark deletes a LIKED or SAVED edge and reports NotFound when there was none
func (r *Repository) unmark(ctx context.Context, op, rel, entity, postID, userID string) error {
	query := `
		MATCH (:User {id: $userID})-[e:` + rel + `]->(:Post {id: $postID})
		DELETE e
		RETURN count(e) as removed
	`
	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"postID": postID,
		"userID": userID,
	})
	if err != nil {
		return unavailable(op, err)
	}
	if len(records) == 0 || getIntFromRecord(records[0], "removed") == 0 {
		return apperrors.NewNotFound(entity, postID)
	}
	return nil
}

// LikePost records a like. Liking twice is a no-op.
func (r *Repository) LikePost(ctx context.Context, postID, userID string) error {
	return r.mark(ctx, "like post", "LIKED", postID, userID)
}

// UnlikePost removes a like
func (r *Repository) UnlikePost(ctx context.Context, postID, userID string) error {
	return r.unmark(ctx, "unlike post", "LIKED", "like", postID, userID)
}

// SavePost records a save. Saving twice is a no-op.
func (r *Repository) SavePost(ctx context.Context, postID, userID string) error {
	return r.mark(ctx, "save post", "SAVED", postID, userID)
}

// UnsavePost removes a save
func (r *Repository) UnsavePost(ctx context.Context, postID, userID string) error {
	return r.unmark(ctx, "unsave post", "SAVED", "save", postID, userID)
}
