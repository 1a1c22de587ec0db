package store

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// JoinedWorkspaceIDs lists workspaces the user belongs to
func (s *Store) JoinedWorkspaceIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&WorkspaceMemberModel{}).
		Where("user_id = ?", userID).
		Pluck("workspace_id", &ids).Error
	if err != nil {
		return nil, unavailable("joined workspace ids", err)
	}
	return orEmpty(ids), nil
}

// WorkspaceMembers lists a workspace's member ids in join order
func (s *Store) WorkspaceMembers(ctx context.Context, workspaceID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&WorkspaceMemberModel{}).
		Where("workspace_id = ?", workspaceID).
		Order("joined_at ASC, user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, unavailable("workspace members", err)
	}
	return orEmpty(ids), nil
}

// PublicWorkspaces enumerates public workspaces, oldest first
func (s *Store) PublicWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	var rows []WorkspaceModel
	err := s.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("public workspaces", err)
	}

	out := make([]domain.Workspace, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

// GetWorkspace loads a workspace and repairs a stale member_count
func (s *Store) GetWorkspace(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	db := s.db.WithContext(ctx)

	var m WorkspaceModel
	if err := db.First(&m, "id = ?", workspaceID).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("workspace", workspaceID)
		}
		return nil, unavailable("get workspace", err)
	}

	var actual int64
	if err := db.Model(&WorkspaceMemberModel{}).Where("workspace_id = ?", workspaceID).Count(&actual).Error; err != nil {
		return nil, unavailable("count workspace members", err)
	}
	if int(actual) != m.MemberCount {
		s.logger.Warn("Repairing stale member count",
			zap.String("workspace_id", workspaceID),
			zap.Int("stored", m.MemberCount),
			zap.Int64("actual", actual),
		)
		if err := db.Model(&WorkspaceModel{}).Where("id = ?", workspaceID).
			UpdateColumn("member_count", actual).Error; err != nil {
			return nil, unavailable("repair member count", err)
		}
		m.MemberCount = int(actual)
	}

	w := m.toDomain()
	return &w, nil
}

// CreateWorkspace inserts a workspace with its owner as the first admin member
func (s *Store) CreateWorkspace(ctx context.Context, w domain.Workspace) (*domain.Workspace, error) {
	if w.ID == "" {
		w.ID = newID()
	}
	now := s.now()
	w.CreatedAt, w.UpdatedAt = now, now
	w.MemberCount = 1
	w.PaperCount = 0

	m := fromWorkspace(w)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		owner := WorkspaceMemberModel{WorkspaceID: w.ID, UserID: w.OwnerID, Role: domain.RoleAdmin, JoinedAt: now}
		return tx.Create(&owner).Error
	})
	if err != nil {
		return nil, unavailable("create workspace", err)
	}

	s.logger.Info("Workspace created", zap.String("workspace_id", w.ID), zap.String("owner_id", w.OwnerID))
	created := m.toDomain()
	return &created, nil
}

// UpdateWorkspace applies a partial update to the descriptive fields
func (s *Store) UpdateWorkspace(ctx context.Context, workspaceID string, patch domain.WorkspacePatch) (*domain.Workspace, error) {
	var updated domain.Workspace
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m WorkspaceModel
		if err := tx.First(&m, "id = ?", workspaceID).Error; err != nil {
			if isNotFound(err) {
				return apperrors.NewNotFound("workspace", workspaceID)
			}
			return err
		}

		w := m.toDomain()
		patch.Apply(&w)
		w.UpdatedAt = s.now()
		next := fromWorkspace(w)
		if err := tx.Model(&m).Select("Name", "Description", "ResearchField", "ResearchTopics", "IsPublic", "UpdatedAt").
			Updates(&next).Error; err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, unavailable("update workspace", err)
	}
	return &updated, nil
}

// JoinWorkspace adds a member and increments member_count in one transaction
func (s *Store) JoinWorkspace(ctx context.Context, workspaceID, userID string) (*domain.WorkspaceMember, error) {
	member := WorkspaceMemberModel{WorkspaceID: workspaceID, UserID: userID, Role: domain.RoleMember, JoinedAt: s.now()}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w WorkspaceModel
		if err := tx.Select("id", "is_public").First(&w, "id = ?", workspaceID).Error; err != nil {
			if isNotFound(err) {
				return apperrors.NewNotFound("workspace", workspaceID)
			}
			return err
		}
		if !w.IsPublic {
			return apperrors.NewForbidden("join workspace", "workspace is private")
		}

		var existing int64
		if err := tx.Model(&WorkspaceMemberModel{}).
			Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.NewConflict("workspace member", userID)
		}

		if err := tx.Create(&member).Error; err != nil {
			if isDuplicate(err) {
				return apperrors.NewConflict("workspace member", userID)
			}
			return err
		}
		return tx.Model(&WorkspaceModel{}).Where("id = ?", workspaceID).
			UpdateColumn("member_count", gorm.Expr("member_count + ?", 1)).Error
	})
	if err != nil {
		return nil, unavailable("join workspace", err)
	}

	s.logger.Info("Workspace joined", zap.String("workspace_id", workspaceID), zap.String("user_id", userID))
	joined := member.toDomain()
	return &joined, nil
}

// LeaveWorkspace removes a member and decrements member_count in one transaction.
// The owner cannot leave.
func (s *Store) LeaveWorkspace(ctx context.Context, workspaceID, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w WorkspaceModel
		if err := tx.Select("id", "owner_id").First(&w, "id = ?", workspaceID).Error; err != nil {
			if isNotFound(err) {
				return apperrors.NewNotFound("workspace", workspaceID)
			}
			return err
		}
		if w.OwnerID == userID {
			return apperrors.NewForbidden("leave workspace", "the owner cannot leave")
		}

		res := tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).Delete(&WorkspaceMemberModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFound("workspace member", userID)
		}
		return tx.Model(&WorkspaceModel{}).Where("id = ? AND member_count > 0", workspaceID).
			UpdateColumn("member_count", gorm.Expr("member_count - ?", 1)).Error
	})
	if err != nil {
		return unavailable("leave workspace", err)
	}

	s.logger.Info("Workspace left", zap.String("workspace_id", workspaceID), zap.String("user_id", userID))
	return nil
}

// AddWorkspacePaper attaches a paper and bumps paper_count. Attaching twice is a no-op.
func (s *Store) AddWorkspacePaper(ctx context.Context, workspaceID, paperID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&WorkspaceModel{}).Where("id = ?", workspaceID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.NewNotFound("workspace", workspaceID)
		}
		if err := tx.Model(&PaperModel{}).Where("id = ?", paperID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.NewNotFound("paper", paperID)
		}

		link := WorkspacePaperModel{WorkspaceID: workspaceID, PaperID: paperID, Status: "active", AddedAt: s.now()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&WorkspaceModel{}).Where("id = ?", workspaceID).
			UpdateColumn("paper_count", gorm.Expr("paper_count + ?", 1)).Error
	})
	if err != nil {
		return unavailable("add workspace paper", err)
	}
	return nil
}

// CreatePaper inserts paper metadata
func (s *Store) CreatePaper(ctx context.Context, p domain.Paper) (*domain.Paper, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	m := PaperModel{
		ID:            p.ID,
		Title:         p.Title,
		Abstract:      p.Abstract,
		Authors:       tags(p.Authors),
		PublishedDate: p.PublishedDate,
		UploaderID:    p.UploaderID,
		CreatedAt:     s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, unavailable("create paper", err)
	}
	created := m.toDomain()
	return &created, nil
}

// CreateScrap inserts a scrap
func (s *Store) CreateScrap(ctx context.Context, sc domain.Scrap) (*domain.Scrap, error) {
	if sc.ID == "" {
		sc.ID = newID()
	}
	m := ScrapModel{
		ID:          sc.ID,
		UserID:      sc.UserID,
		PaperID:     sc.PaperID,
		WorkspaceID: sc.WorkspaceID,
		Content:     sc.Content,
		Note:        sc.Note,
		PageNumber:  sc.PageNumber,
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, unavailable("create scrap", err)
	}
	created := m.toDomain()
	return &created, nil
}
