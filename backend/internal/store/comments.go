package store

import (
	"context"

	"gorm.io/gorm"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// TargetExists reports whether a commentable entity exists
func (s *Store) TargetExists(ctx context.Context, t domain.Target) (bool, error) {
	db := s.db.WithContext(ctx)

	var query *gorm.DB
	switch t.Type {
	case domain.TargetPaper:
		query = db.Model(&PaperModel{}).Where("id = ?", t.ID)
	case domain.TargetScrap:
		query = db.Model(&ScrapModel{}).Where("id = ?", t.ID)
	case domain.TargetGroupPaper:
		query = db.Model(&WorkspacePaperModel{}).Where("paper_id = ?", t.ID)
	case domain.TargetGroupScrap:
		query = db.Model(&ScrapModel{}).Where("id = ? AND workspace_id IS NOT NULL", t.ID)
	case domain.TargetPost:
		query = db.Model(&PostModel{}).Where("id = ?", t.ID)
	default:
		return false, nil
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, unavailable("target exists", err)
	}
	return count > 0, nil
}

// ListComments returns every comment on the target in creation order
func (s *Store) ListComments(ctx context.Context, t domain.Target) ([]domain.Comment, error) {
	db := s.db.WithContext(ctx)

	if t.Flavor() == domain.FlavorPost {
		var rows []PostCommentModel
		if err := db.Where("post_id = ?", t.ID).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
			return nil, unavailable("list post comments", err)
		}
		out := make([]domain.Comment, len(rows))
		for i, m := range rows {
			out[i] = m.toDomain()
		}
		return out, nil
	}

	var rows []CommentModel
	err := db.Where("target_type = ? AND target_id = ?", t.Type, t.ID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("list comments", err)
	}
	out := make([]domain.Comment, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

// GetComment loads one comment of the given flavor
func (s *Store) GetComment(ctx context.Context, flavor domain.CommentFlavor, commentID string) (*domain.Comment, error) {
	db := s.db.WithContext(ctx)

	var (
		c   domain.Comment
		err error
	)
	if flavor == domain.FlavorPost {
		var m PostCommentModel
		err = db.First(&m, "id = ?", commentID).Error
		c = m.toDomain()
	} else {
		var m CommentModel
		err = db.First(&m, "id = ?", commentID).Error
		c = m.toDomain()
	}
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("comment", commentID)
		}
		return nil, unavailable("get comment", err)
	}
	return &c, nil
}

// CreateComment inserts a comment into the table for its target's flavor
func (s *Store) CreateComment(ctx context.Context, c domain.Comment) (*domain.Comment, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	db := s.db.WithContext(ctx)
	var err error
	if c.Target.Flavor() == domain.FlavorPost {
		err = db.Create(&PostCommentModel{
			ID:        c.ID,
			PostID:    c.Target.ID,
			UserID:    c.UserID,
			Content:   c.Content,
			ParentID:  c.ParentID,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error
	} else {
		err = db.Create(&CommentModel{
			ID:         c.ID,
			TargetType: c.Target.Type,
			TargetID:   c.Target.ID,
			UserID:     c.UserID,
			Content:    c.Content,
			ParentID:   c.ParentID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}).Error
	}
	if err != nil {
		return nil, unavailable("create comment", err)
	}
	return &c, nil
}

func commentModel(flavor domain.CommentFlavor) interface{} {
	if flavor == domain.FlavorPost {
		return &PostCommentModel{}
	}
	return &CommentModel{}
}

// UpdateComment replaces the content of a comment owned by userID
func (s *Store) UpdateComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID, content string) (*domain.Comment, error) {
	res := s.db.WithContext(ctx).Model(commentModel(flavor)).
		Where("id = ? AND user_id = ?", commentID, userID).
		Updates(map[string]interface{}{"content": content, "updated_at": s.now()})
	if res.Error != nil {
		return nil, unavailable("update comment", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewNotFound("comment", commentID)
	}
	return s.GetComment(ctx, flavor, commentID)
}

// DeleteComment removes a comment owned by userID and any replies to it
func (s *Store) DeleteComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", commentID, userID).Delete(commentModel(flavor))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFound("comment", commentID)
		}
		return tx.Where("parent_id = ?", commentID).Delete(commentModel(flavor)).Error
	})
	if err != nil {
		return unavailable("delete comment", err)
	}
	return nil
}
