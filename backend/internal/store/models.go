package store

import (
	"time"

	"gorm.io/datatypes"

	"scholargraph/backend/internal/domain"
)

// UserModel is the users table
type UserModel struct {
	ID                string `gorm:"primaryKey;size:36"`
	Email             string `gorm:"size:255;uniqueIndex"`
	FullName          string `gorm:"size:255"`
	ProfileImageURL   string `gorm:"size:1024"`
	Institution       string `gorm:"size:255"`
	Department        string `gorm:"size:255"`
	ResearchField     string `gorm:"size:255;index"`
	ResearchInterests datatypes.JSONSlice[string]
	CreatedAt         time.Time
}

func (UserModel) TableName() string { return "users" }

// FollowModel is one directed follow edge
type FollowModel struct {
	FollowerID  string `gorm:"primaryKey;size:36"`
	FollowingID string `gorm:"primaryKey;size:36;index"`
	CreatedAt   time.Time
}

func (FollowModel) TableName() string { return "follows" }

// WorkspaceModel is the workspaces table
type WorkspaceModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	Name           string `gorm:"size:255;not null"`
	Description    string `gorm:"type:text"`
	ResearchField  string `gorm:"size:255;index"`
	ResearchTopics datatypes.JSONSlice[string]
	IsPublic       bool   `gorm:"index"`
	OwnerID        string `gorm:"size:36;index"`
	MemberCount    int    `gorm:"not null;default:0"`
	PaperCount     int    `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

func (WorkspaceModel) TableName() string { return "workspaces" }

// WorkspaceMemberModel is one roster row, unique per (workspace, user)
type WorkspaceMemberModel struct {
	WorkspaceID string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"primaryKey;size:36;index"`
	Role        string `gorm:"size:16;not null"`
	JoinedAt    time.Time
}

func (WorkspaceMemberModel) TableName() string { return "workspace_members" }

// WorkspacePaperModel attaches a paper to a workspace
type WorkspacePaperModel struct {
	WorkspaceID string `gorm:"primaryKey;size:36"`
	PaperID     string `gorm:"primaryKey;size:36;index"`
	Status      string `gorm:"size:32"`
	AddedAt     time.Time
}

func (WorkspacePaperModel) TableName() string { return "workspace_papers" }

// PaperModel is the papers table
type PaperModel struct {
	ID            string `gorm:"primaryKey;size:36"`
	Title         string `gorm:"size:1024;not null"`
	Abstract      string `gorm:"type:text"`
	Authors       datatypes.JSONSlice[string]
	PublishedDate *time.Time
	UploaderID    string `gorm:"size:36"`
	CreatedAt     time.Time
}

func (PaperModel) TableName() string { return "papers" }

// ScrapModel is the scraps table
type ScrapModel struct {
	ID          string  `gorm:"primaryKey;size:36"`
	UserID      string  `gorm:"size:36;index"`
	PaperID     *string `gorm:"size:36"`
	WorkspaceID *string `gorm:"size:36;index"`
	Content     string  `gorm:"type:text"`
	Note        string  `gorm:"type:text"`
	PageNumber  *int
	CreatedAt   time.Time
}

func (ScrapModel) TableName() string { return "scraps" }

// PostModel is the posts table
type PostModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	AuthorID    string `gorm:"size:36;index:idx_posts_author_created,priority:1"`
	Title       string `gorm:"size:512"`
	Content     string `gorm:"type:text"`
	PaperTitle  string `gorm:"size:1024"`
	KeyInsights datatypes.JSONSlice[string]
	PaperID     *string   `gorm:"size:36"`
	CreatedAt   time.Time `gorm:"index:idx_posts_author_created,priority:2"`
	UpdatedAt   time.Time
}

func (PostModel) TableName() string { return "posts" }

// LikeModel is unique per (post, user)
type LikeModel struct {
	PostID    string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (LikeModel) TableName() string { return "likes" }

// SaveModel is unique per (post, user)
type SaveModel struct {
	PostID    string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (SaveModel) TableName() string { return "saves" }

// CommentModel holds comments on papers, scraps and their workspace-shared copies
type CommentModel struct {
	ID         string  `gorm:"primaryKey;size:36"`
	TargetType string  `gorm:"size:32;index:idx_comments_target,priority:1"`
	TargetID   string  `gorm:"size:36;index:idx_comments_target,priority:2"`
	UserID     string  `gorm:"size:36"`
	Content    string  `gorm:"type:text;not null"`
	ParentID   *string `gorm:"size:36;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CommentModel) TableName() string { return "comments" }

// PostCommentModel holds comments on posts
type PostCommentModel struct {
	ID        string  `gorm:"primaryKey;size:36"`
	PostID    string  `gorm:"size:36;index"`
	UserID    string  `gorm:"size:36"`
	Content   string  `gorm:"type:text;not null"`
	ParentID  *string `gorm:"size:36;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PostCommentModel) TableName() string { return "post_comments" }

// allModels lists every table for AutoMigrate
func allModels() []interface{} {
	return []interface{}{
		&UserModel{},
		&FollowModel{},
		&WorkspaceModel{},
		&WorkspaceMemberModel{},
		&WorkspacePaperModel{},
		&PaperModel{},
		&ScrapModel{},
		&PostModel{},
		&LikeModel{},
		&SaveModel{},
		&CommentModel{},
		&PostCommentModel{},
	}
}

// Conversions between table rows and domain values

func tags(s datatypes.JSONSlice[string]) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}

func fromUser(u domain.User) UserModel {
	return UserModel{
		ID:                u.ID,
		Email:             u.Email,
		FullName:          u.FullName,
		ProfileImageURL:   u.ProfileImageURL,
		Institution:       u.Institution,
		Department:        u.Department,
		ResearchField:     u.ResearchField,
		ResearchInterests: datatypes.JSONSlice[string](tags(u.ResearchInterests)),
		CreatedAt:         u.CreatedAt,
	}
}

func (m UserModel) toDomain() domain.User {
	return domain.User{
		ID:                m.ID,
		Email:             m.Email,
		FullName:          m.FullName,
		ProfileImageURL:   m.ProfileImageURL,
		Institution:       m.Institution,
		Department:        m.Department,
		ResearchField:     m.ResearchField,
		ResearchInterests: tags(m.ResearchInterests),
		CreatedAt:         m.CreatedAt,
	}
}

func fromWorkspace(w domain.Workspace) WorkspaceModel {
	return WorkspaceModel{
		ID:             w.ID,
		Name:           w.Name,
		Description:    w.Description,
		ResearchField:  w.ResearchField,
		ResearchTopics: datatypes.JSONSlice[string](tags(w.ResearchTopics)),
		IsPublic:       w.IsPublic,
		OwnerID:        w.OwnerID,
		MemberCount:    w.MemberCount,
		PaperCount:     w.PaperCount,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

func (m WorkspaceModel) toDomain() domain.Workspace {
	return domain.Workspace{
		ID:             m.ID,
		Name:           m.Name,
		Description:    m.Description,
		ResearchField:  m.ResearchField,
		ResearchTopics: tags(m.ResearchTopics),
		IsPublic:       m.IsPublic,
		OwnerID:        m.OwnerID,
		MemberCount:    m.MemberCount,
		PaperCount:     m.PaperCount,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (m WorkspaceMemberModel) toDomain() domain.WorkspaceMember {
	return domain.WorkspaceMember{
		WorkspaceID: m.WorkspaceID,
		UserID:      m.UserID,
		Role:        m.Role,
		JoinedAt:    m.JoinedAt,
	}
}

func (m PaperModel) toDomain() domain.Paper {
	return domain.Paper{
		ID:            m.ID,
		Title:         m.Title,
		Abstract:      m.Abstract,
		Authors:       tags(m.Authors),
		PublishedDate: m.PublishedDate,
		UploaderID:    m.UploaderID,
	}
}

func (m ScrapModel) toDomain() domain.Scrap {
	return domain.Scrap{
		ID:          m.ID,
		UserID:      m.UserID,
		PaperID:     m.PaperID,
		WorkspaceID: m.WorkspaceID,
		Content:     m.Content,
		Note:        m.Note,
		PageNumber:  m.PageNumber,
		CreatedAt:   m.CreatedAt,
	}
}

func fromPost(p domain.Post) PostModel {
	return PostModel{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		Title:       p.Title,
		Content:     p.Content,
		PaperTitle:  p.PaperTitle,
		KeyInsights: datatypes.JSONSlice[string](tags(p.KeyInsights)),
		PaperID:     p.PaperID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (m PostModel) toDomain() domain.Post {
	return domain.Post{
		ID:          m.ID,
		AuthorID:    m.AuthorID,
		Title:       m.Title,
		Content:     m.Content,
		PaperTitle:  m.PaperTitle,
		KeyInsights: tags(m.KeyInsights),
		PaperID:     m.PaperID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (m CommentModel) toDomain() domain.Comment {
	return domain.Comment{
		ID:        m.ID,
		Target:    domain.Target{Type: m.TargetType, ID: m.TargetID},
		UserID:    m.UserID,
		Content:   m.Content,
		ParentID:  m.ParentID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (m PostCommentModel) toDomain() domain.Comment {
	return domain.Comment{
		ID:        m.ID,
		Target:    domain.Target{Type: domain.TargetPost, ID: m.PostID},
		UserID:    m.UserID,
		Content:   m.Content,
		ParentID:  m.ParentID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
