package comments

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// Store is the comment slice of the graph accessor
type Store interface {
	TargetExists(ctx context.Context, t domain.Target) (bool, error)
	ListComments(ctx context.Context, t domain.Target) ([]domain.Comment, error)
	GetComment(ctx context.Context, flavor domain.CommentFlavor, commentID string) (*domain.Comment, error)
	CreateComment(ctx context.Context, c domain.Comment) (*domain.Comment, error)
	UpdateComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID string) error
}

// NewComment is a comment write request
type NewComment struct {
	Target   domain.Target
	UserID   string
	Content  string
	ParentID *string
}

// Service reads comment threads and validates writes
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a comment service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// GetComments returns the threads on a target. An unknown target has no threads.
func (s *Service) GetComments(ctx context.Context, target domain.Target) ([]domain.RootComment, error) {
	if !domain.ValidTargetType(target.Type) {
		return nil, apperrors.NewValidation("target_type", fmt.Sprintf("unsupported type %q", target.Type))
	}
	flat, err := s.store.ListComments(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("list comments on %s %s: %w", target.Type, target.ID, err)
	}
	return Build(flat), nil
}

// GetPostComments returns the threads on a post
func (s *Service) GetPostComments(ctx context.Context, postID string) ([]domain.RootComment, error) {
	return s.GetComments(ctx, domain.Target{Type: domain.TargetPost, ID: postID})
}

// AddComment stores a root comment or a reply to a root on the same target
func (s *Service) AddComment(ctx context.Context, req NewComment) (*domain.Comment, error) {
	if !domain.ValidTargetType(req.Target.Type) {
		return nil, apperrors.NewValidation("target_type", fmt.Sprintf("unsupported type %q", req.Target.Type))
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperrors.NewValidation("content", "must not be empty")
	}

	exists, err := s.store.TargetExists(ctx, req.Target)
	if err != nil {
		return nil, fmt.Errorf("check target: %w", err)
	}
	if !exists {
		return nil, apperrors.NewNotFound(req.Target.Type, req.Target.ID)
	}

	if req.ParentID != nil {
		if err := s.checkParent(ctx, req.Target, *req.ParentID); err != nil {
			return nil, err
		}
	}

	created, err := s.store.CreateComment(ctx, domain.Comment{
		Target:   req.Target,
		UserID:   req.UserID,
		Content:  content,
		ParentID: req.ParentID,
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.logger.Info("Comment created",
		zap.String("comment_id", created.ID),
		zap.String("target_type", req.Target.Type),
		zap.String("target_id", req.Target.ID),
		zap.Bool("reply", req.ParentID != nil),
	)
	return created, nil
}

func (s *Service) checkParent(ctx context.Context, target domain.Target, parentID string) error {
	parent, err := s.store.GetComment(ctx, target.Flavor(), parentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("comment", parentID)
		}
		return fmt.Errorf("load parent comment: %w", err)
	}
	if parent.Target != target {
		return apperrors.NewInvalidParent(parentID, "parent belongs to another target")
	}
	if !parent.IsRoot() {
		return apperrors.NewInvalidParent(parentID, "replies cannot be nested")
	}
	return nil
}

// UpdateComment replaces the content of a comment owned by userID
func (s *Service) UpdateComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidation("content", "must not be empty")
	}
	if err := s.checkOwner(ctx, flavor, commentID, userID, "update comment"); err != nil {
		return nil, err
	}
	return s.store.UpdateComment(ctx, flavor, commentID, userID, content)
}

// DeleteComment removes a comment owned by userID. Deleting a root removes its replies.
func (s *Service) DeleteComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID string) error {
	if err := s.checkOwner(ctx, flavor, commentID, userID, "delete comment"); err != nil {
		return err
	}
	if err := s.store.DeleteComment(ctx, flavor, commentID, userID); err != nil {
		return err
	}
	s.logger.Info("Comment deleted", zap.String("comment_id", commentID), zap.String("flavor", string(flavor)))
	return nil
}

func (s *Service) checkOwner(ctx context.Context, flavor domain.CommentFlavor, commentID, userID, action string) error {
	c, err := s.store.GetComment(ctx, flavor, commentID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return apperrors.NewForbidden(action, "only the author may change a comment")
	}
	return nil
}
