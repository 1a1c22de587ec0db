package store

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// CreateUser inserts a user, generating an id when none is given
func (s *Store) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}

	m := fromUser(u)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperrors.NewConflict("user", u.Email)
		}
		return nil, unavailable("create user", err)
	}

	created := m.toDomain()
	return &created, nil
}

// GetUser loads one user
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var m UserModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("user", userID)
		}
		return nil, unavailable("get user", err)
	}
	u := m.toDomain()
	return &u, nil
}

// UsersByIDs loads the users that exist among ids
func (s *Store) UsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []UserModel
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, unavailable("users by ids", err)
	}
	for _, m := range rows {
		out[m.ID] = m.toDomain()
	}
	return out, nil
}

// UpdateProfile applies a partial profile update
func (s *Store) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.User, error) {
	var updated domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m UserModel
		if err := tx.First(&m, "id = ?", userID).Error; err != nil {
			if isNotFound(err) {
				return apperrors.NewNotFound("user", userID)
			}
			return err
		}

		u := m.toDomain()
		patch.Apply(&u)
		next := fromUser(u)
		if err := tx.Model(&m).Select("FullName", "ProfileImageURL", "Institution", "Department", "ResearchField", "ResearchInterests").
			Updates(&next).Error; err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, unavailable("update profile", err)
	}

	s.logger.Debug("Profile updated", zap.String("user_id", userID))
	return &updated, nil
}

// FolloweeIDs lists who the user follows. Unknown users follow nobody.
func (s *Store) FolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&FollowModel{}).
		Where("follower_id = ?", userID).
		Order("created_at ASC").
		Pluck("following_id", &ids).Error
	if err != nil {
		return nil, unavailable("followee ids", err)
	}
	return orEmpty(ids), nil
}

// FollowStats counts followers and followees
func (s *Store) FollowStats(ctx context.Context, userID string) (domain.FollowStats, error) {
	var followers, following int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&FollowModel{}).Where("following_id = ?", userID).Count(&followers).Error; err != nil {
		return domain.FollowStats{}, unavailable("follow stats", err)
	}
	if err := db.Model(&FollowModel{}).Where("follower_id = ?", userID).Count(&following).Error; err != nil {
		return domain.FollowStats{}, unavailable("follow stats", err)
	}
	return domain.FollowStats{Followers: int(followers), Following: int(following)}, nil
}

// Follow adds a follow edge. Following twice is a no-op.
func (s *Store) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return apperrors.NewValidation("following_id", "cannot follow yourself")
	}
	if _, err := s.GetUser(ctx, followingID); err != nil {
		return err
	}

	edge := FollowModel{FollowerID: followerID, FollowingID: followingID, CreatedAt: s.now()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
		return unavailable("follow", err)
	}
	return nil
}

// Unfollow removes a follow edge. A missing edge is a no-op.
func (s *Store) Unfollow(ctx context.Context, followerID, followingID string) error {
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&FollowModel{}).Error
	if err != nil {
		return unavailable("unfollow", err)
	}
	return nil
}
