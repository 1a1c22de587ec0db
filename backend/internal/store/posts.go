package store

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scholargraph/backend/internal/constants"
	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// CreatePost inserts a post
func (s *Store) CreatePost(ctx context.Context, p domain.Post) (*domain.Post, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.UpdatedAt = p.CreatedAt

	m := fromPost(p)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, unavailable("create post", err)
	}
	created := m.toDomain()
	return &created, nil
}

// GetPost loads one post
func (s *Store) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	var m PostModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", postID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("post", postID)
		}
		return nil, unavailable("get post", err)
	}
	p := m.toDomain()
	return &p, nil
}

// UpdatePost applies a partial update to a post owned by authorID
func (s *Store) UpdatePost(ctx context.Context, postID, authorID string, patch domain.PostPatch) (*domain.Post, error) {
	var updated domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m PostModel
		if err := tx.First(&m, "id = ?", postID).Error; err != nil {
			if isNotFound(err) {
				return apperrors.NewNotFound("post", postID)
			}
			return err
		}
		if m.AuthorID != authorID {
			return apperrors.NewForbidden("update post", "only the author may edit a post")
		}

		p := m.toDomain()
		patch.Apply(&p)
		p.UpdatedAt = s.now()
		next := fromPost(p)
		if err := tx.Model(&m).Select("Title", "Content", "PaperTitle", "KeyInsights", "PaperID", "UpdatedAt").
			Updates(&next).Error; err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, unavailable("update post", err)
	}
	return &updated, nil
}

// DeletePost removes a post owned by authorID together with its likes, saves and comments
func (s *Store) DeletePost(ctx context.Context, postID, authorID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m PostModel
		if err := tx.Select("id", "author_id").First(&m, "id = ?", postID).Error; err != nil {
			if isNotFound(err) {
				return apperrors.NewNotFound("post", postID)
			}
			return err
		}
		if m.AuthorID != authorID {
			return apperrors.NewForbidden("delete post", "only the author may delete a post")
		}

		for _, owned := range []interface{}{&LikeModel{}, &SaveModel{}, &PostCommentModel{}} {
			if err := tx.Where("post_id = ?", postID).Delete(owned).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&PostModel{}, "id = ?", postID).Error
	})
	if err != nil {
		return unavailable("delete post", err)
	}

	s.logger.Info("Post deleted", zap.String("post_id", postID))
	return nil
}

// PostsByAuthors lists posts by any of q.AuthorIDs, newest first with id as
// tie-break. A cursor replaces the offset.
func (s *Store) PostsByAuthors(ctx context.Context, q domain.PostQuery) ([]domain.Post, error) {
	if len(q.AuthorIDs) == 0 {
		return []domain.Post{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = constants.DefaultFeedLimit
	}

	query := s.db.WithContext(ctx).
		Where("author_id IN ?", q.AuthorIDs).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if q.Before != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			q.Before.CreatedAt, q.Before.CreatedAt, q.Before.ID)
	} else if q.Skip > 0 {
		query = query.Offset(q.Skip)
	}

	var rows []PostModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, unavailable("posts by authors", err)
	}

	out := make([]domain.Post, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

type engagementRow struct {
	Likes    int64
	Saves    int64
	Comments int64
	Liked    int64
	Saved    int64
}

// PostEngagement counts likes, saves and comments and whether viewerID
// liked or saved the post. An unknown post has zero engagement.
func (s *Store) PostEngagement(ctx context.Context, postID, viewerID string) (domain.Engagement, error) {
	var row engagementRow
	err := s.db.WithContext(ctx).Raw(`SELECT
		(SELECT COUNT(*) FROM likes WHERE post_id = @post) AS likes,
		(SELECT COUNT(*) FROM saves WHERE post_id = @post) AS saves,
		(SELECT COUNT(*) FROM post_comments WHERE post_id = @post) AS comments,
		(SELECT COUNT(*) FROM likes WHERE post_id = @post AND user_id = @viewer) AS liked,
		(SELECT COUNT(*) FROM saves WHERE post_id = @post AND user_id = @viewer) AS saved`,
		map[string]interface{}{"post": postID, "viewer": viewerID},
	).Scan(&row).Error
	if err != nil {
		return domain.Engagement{}, unavailable("post engagement", err)
	}

	return domain.Engagement{
		Likes:    int(row.Likes),
		Saves:    int(row.Saves),
		Comments: int(row.Comments),
		IsLiked:  row.Liked > 0,
		IsSaved:  row.Saved > 0,
	}, nil
}

// LikePost records a like. Liking twice is a no-op.
func (s *Store) LikePost(ctx context.Context, postID, userID string) error {
	return s.mark(ctx, "like post", postID, &LikeModel{PostID: postID, UserID: userID, CreatedAt: s.now()})
}

// SavePost records a save. Saving twice is a no-op.
func (s *Store) SavePost(ctx context.Context, postID, userID string) error {
	return s.mark(ctx, "save post", postID, &SaveModel{PostID: postID, UserID: userID, CreatedAt: s.now()})
}

// UnlikePost removes a like
func (s *Store) UnlikePost(ctx context.Context, postID, userID string) error {
	return s.unmark(ctx, "unlike post", "like", postID, userID, &LikeModel{})
}

// UnsavePost removes a save
func (s *Store) UnsavePost(ctx context.Context, postID, userID string) error {
	return s.unmark(ctx, "unsave post", "save", postID, userID, &SaveModel{})
}

func (s *Store) mark(ctx context.Context, op, postID string, row interface{}) error {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&PostModel{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return unavailable(op, err)
	}
	if count == 0 {
		return apperrors.NewNotFound("post", postID)
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return unavailable(op, err)
	}
	return nil
}

func (s *Store) unmark(ctx context.Context, op, entity, postID, userID string, model interface{}) error {
	res := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(model)
	if res.Error != nil {
		return unavailable(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFound(entity, postID)
	}
	return nil
}
