// Package resilience guards the graph accessor with a circuit breaker so a
// failing backend is reported as Unavailable without piling up requests.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"scholargraph/backend/internal/domain"
	"scholargraph/backend/internal/metrics"
	apperrors "scholargraph/backend/pkg/errors"
)

// Settings configures the storage breaker
type Settings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// GuardedStore is a domain.Store whose calls pass through a circuit breaker.
// Only Unavailable errors count as failures; NotFound, Conflict and the
// other domain outcomes pass through untouched.
type GuardedStore struct {
	inner  domain.Store
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *zap.Logger
}

var _ domain.Store = (*GuardedStore)(nil)

// NewGuardedStore wraps inner with a breaker that opens after
// settings.MaxFailures consecutive storage failures.
func NewGuardedStore(inner domain.Store, settings Settings, logger *zap.Logger) *GuardedStore {
	if settings.Name == "" {
		settings.Name = "store"
	}
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	metrics.BreakerState.WithLabelValues(settings.Name).Set(stateValue(gobreaker.StateClosed))

	g := &GuardedStore{inner: inner, name: settings.Name, logger: logger}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsUnavailable(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Storage breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return g
}

// State reports the breaker state
func (g *GuardedStore) State() gobreaker.State {
	return g.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func guard[T any](g *GuardedStore, op string, fn func() (T, error)) (T, error) {
	var zero T
	result, err := g.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.StoreFailures.WithLabelValues(op).Inc()
			return zero, apperrors.NewUnavailable(op, err)
		}
		if apperrors.IsUnavailable(err) {
			metrics.StoreFailures.WithLabelValues(op).Inc()
			g.logger.Error("Storage operation failed", zap.String("operation", op), zap.Error(err))
		}
		return zero, err
	}
	return result.(T), nil
}

func guardErr(g *GuardedStore, op string, fn func() error) error {
	_, err := guard(g, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Close closes the wrapped store without going through the breaker
func (g *GuardedStore) Close() error {
	return g.inner.Close()
}

func (g *GuardedStore) FolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	return guard(g, "followee_ids", func() ([]string, error) { return g.inner.FolloweeIDs(ctx, userID) })
}

func (g *GuardedStore) FollowStats(ctx context.Context, userID string) (domain.FollowStats, error) {
	return guard(g, "follow_stats", func() (domain.FollowStats, error) { return g.inner.FollowStats(ctx, userID) })
}

func (g *GuardedStore) Follow(ctx context.Context, followerID, followingID string) error {
	return guardErr(g, "follow", func() error { return g.inner.Follow(ctx, followerID, followingID) })
}

func (g *GuardedStore) Unfollow(ctx context.Context, followerID, followingID string) error {
	return guardErr(g, "unfollow", func() error { return g.inner.Unfollow(ctx, followerID, followingID) })
}

func (g *GuardedStore) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	return guard(g, "create_user", func() (*domain.User, error) { return g.inner.CreateUser(ctx, u) })
}

func (g *GuardedStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return guard(g, "get_user", func() (*domain.User, error) { return g.inner.GetUser(ctx, userID) })
}

func (g *GuardedStore) UsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	return guard(g, "users_by_ids", func() (map[string]domain.User, error) { return g.inner.UsersByIDs(ctx, ids) })
}

func (g *GuardedStore) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.User, error) {
	return guard(g, "update_profile", func() (*domain.User, error) { return g.inner.UpdateProfile(ctx, userID, patch) })
}

func (g *GuardedStore) JoinedWorkspaceIDs(ctx context.Context, userID string) ([]string, error) {
	return guard(g, "joined_workspace_ids", func() ([]string, error) { return g.inner.JoinedWorkspaceIDs(ctx, userID) })
}

func (g *GuardedStore) WorkspaceMembers(ctx context.Context, workspaceID string) ([]string, error) {
	return guard(g, "workspace_members", func() ([]string, error) { return g.inner.WorkspaceMembers(ctx, workspaceID) })
}

func (g *GuardedStore) PublicWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	return guard(g, "public_workspaces", func() ([]domain.Workspace, error) { return g.inner.PublicWorkspaces(ctx) })
}

func (g *GuardedStore) GetWorkspace(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	return guard(g, "get_workspace", func() (*domain.Workspace, error) { return g.inner.GetWorkspace(ctx, workspaceID) })
}

func (g *GuardedStore) CreateWorkspace(ctx context.Context, w domain.Workspace) (*domain.Workspace, error) {
	return guard(g, "create_workspace", func() (*domain.Workspace, error) { return g.inner.CreateWorkspace(ctx, w) })
}

func (g *GuardedStore) UpdateWorkspace(ctx context.Context, workspaceID string, patch domain.WorkspacePatch) (*domain.Workspace, error) {
	return guard(g, "update_workspace", func() (*domain.Workspace, error) {
		return g.inner.UpdateWorkspace(ctx, workspaceID, patch)
	})
}

func (g *GuardedStore) JoinWorkspace(ctx context.Context, workspaceID, userID string) (*domain.WorkspaceMember, error) {
	return guard(g, "join_workspace", func() (*domain.WorkspaceMember, error) {
		return g.inner.JoinWorkspace(ctx, workspaceID, userID)
	})
}

func (g *GuardedStore) LeaveWorkspace(ctx context.Context, workspaceID, userID string) error {
	return guardErr(g, "leave_workspace", func() error { return g.inner.LeaveWorkspace(ctx, workspaceID, userID) })
}

func (g *GuardedStore) AddWorkspacePaper(ctx context.Context, workspaceID, paperID string) error {
	return guardErr(g, "add_workspace_paper", func() error { return g.inner.AddWorkspacePaper(ctx, workspaceID, paperID) })
}

func (g *GuardedStore) CreatePaper(ctx context.Context, p domain.Paper) (*domain.Paper, error) {
	return guard(g, "create_paper", func() (*domain.Paper, error) { return g.inner.CreatePaper(ctx, p) })
}

func (g *GuardedStore) CreateScrap(ctx context.Context, s domain.Scrap) (*domain.Scrap, error) {
	return guard(g, "create_scrap", func() (*domain.Scrap, error) { return g.inner.CreateScrap(ctx, s) })
}

func (g *GuardedStore) CreatePost(ctx context.Context, p domain.Post) (*domain.Post, error) {
	return guard(g, "create_post", func() (*domain.Post, error) { return g.inner.CreatePost(ctx, p) })
}

func (g *GuardedStore) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	return guard(g, "get_post", func() (*domain.Post, error) { return g.inner.GetPost(ctx, postID) })
}

func (g *GuardedStore) UpdatePost(ctx context.Context, postID, authorID string, patch domain.PostPatch) (*domain.Post, error) {
	return guard(g, "update_post", func() (*domain.Post, error) { return g.inner.UpdatePost(ctx, postID, authorID, patch) })
}

func (g *GuardedStore) DeletePost(ctx context.Context, postID, authorID string) error {
	return guardErr(g, "delete_post", func() error { return g.inner.DeletePost(ctx, postID, authorID) })
}

func (g *GuardedStore) PostsByAuthors(ctx context.Context, q domain.PostQuery) ([]domain.Post, error) {
	return guard(g, "posts_by_authors", func() ([]domain.Post, error) { return g.inner.PostsByAuthors(ctx, q) })
}

func (g *GuardedStore) PostEngagement(ctx context.Context, postID, viewerID string) (domain.Engagement, error) {
	return guard(g, "post_engagement", func() (domain.Engagement, error) { return g.inner.PostEngagement(ctx, postID, viewerID) })
}

func (g *GuardedStore) LikePost(ctx context.Context, postID, userID string) error {
	return guardErr(g, "like_post", func() error { return g.inner.LikePost(ctx, postID, userID) })
}

func (g *GuardedStore) UnlikePost(ctx context.Context, postID, userID string) error {
	return guardErr(g, "unlike_post", func() error { return g.inner.UnlikePost(ctx, postID, userID) })
}

func (g *GuardedStore) SavePost(ctx context.Context, postID, userID string) error {
	return guardErr(g, "save_post", func() error { return g.inner.SavePost(ctx, postID, userID) })
}

func (g *GuardedStore) UnsavePost(ctx context.Context, postID, userID string) error {
	return guardErr(g, "unsave_post", func() error { return g.inner.UnsavePost(ctx, postID, userID) })
}

func (g *GuardedStore) TargetExists(ctx context.Context, t domain.Target) (bool, error) {
	return guard(g, "target_exists", func() (bool, error) { return g.inner.TargetExists(ctx, t) })
}

func (g *GuardedStore) ListComments(ctx context.Context, t domain.Target) ([]domain.Comment, error) {
	return guard(g, "list_comments", func() ([]domain.Comment, error) { return g.inner.ListComments(ctx, t) })
}

func (g *GuardedStore) GetComment(ctx context.Context, flavor domain.CommentFlavor, commentID string) (*domain.Comment, error) {
	return guard(g, "get_comment", func() (*domain.Comment, error) { return g.inner.GetComment(ctx, flavor, commentID) })
}

func (g *GuardedStore) CreateComment(ctx context.Context, c domain.Comment) (*domain.Comment, error) {
	return guard(g, "create_comment", func() (*domain.Comment, error) { return g.inner.CreateComment(ctx, c) })
}

func (g *GuardedStore) UpdateComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID, content string) (*domain.Comment, error) {
	return guard(g, "update_comment", func() (*domain.Comment, error) {
		return g.inner.UpdateComment(ctx, flavor, commentID, userID, content)
	})
}

func (g *GuardedStore) DeleteComment(ctx context.Context, flavor domain.CommentFlavor, commentID, userID string) error {
	return guardErr(g, "delete_comment", func() error { return g.inner.DeleteComment(ctx, flavor, commentID, userID) })
}
