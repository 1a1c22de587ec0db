package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// SocialGraph reads and writes follow edges
type SocialGraph interface {
	FolloweeIDs(ctx context.Context, userID string) ([]string, error)
	FollowStats(ctx context.Context, userID string) (FollowStats, error)
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
}

// UserStore reads and writes user profiles
type UserStore interface {
	CreateUser(ctx context.Context, u User) (*User, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	UsersByIDs(ctx context.Context, ids []string) (map[string]User, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*User, error)
}

// WorkspaceStore reads and writes workspaces and their rosters
type WorkspaceStore interface {
	JoinedWorkspaceIDs(ctx context.Context, userID string) ([]string, error)
	WorkspaceMembers(ctx context.Context, workspaceID string) ([]string, error)
	PublicWorkspaces(ctx context.Context) ([]Workspace, error)
	GetWorkspace(ctx context.Context, workspaceID string) (*Workspace, error)
	CreateWorkspace(ctx context.Context, w Workspace) (*Workspace, error)
	UpdateWorkspace(ctx context.Context, workspaceID string, patch WorkspacePatch) (*Workspace, error)
	JoinWorkspace(ctx context.Context, workspaceID, userID string) (*WorkspaceMember, error)
	LeaveWorkspace(ctx context.Context, workspaceID, userID string) error
	AddWorkspacePaper(ctx context.Context, workspaceID, paperID string) error
}

// LibraryStore writes the papers and scraps that comments can target
type LibraryStore interface {
	CreatePaper(ctx context.Context, p Paper) (*Paper, error)
	CreateScrap(ctx context.Context, s Scrap) (*Scrap, error)
}

// PostStore reads and writes posts and their likes and saves
type PostStore interface {
	CreatePost(ctx context.Context, p Post) (*Post, error)
	GetPost(ctx context.Context, postID string) (*Post, error)
	UpdatePost(ctx context.Context, postID, authorID string, patch PostPatch) (*Post, error)
	DeletePost(ctx context.Context, postID, authorID string) error
	PostsByAuthors(ctx context.Context, q PostQuery) ([]Post, error)
	PostEngagement(ctx context.Context, postID, viewerID string) (Engagement, error)
	LikePost(ctx context.Context, postID, userID string) error
	UnlikePost(ctx context.Context, postID, userID string) error
	SavePost(ctx context.Context, postID, userID string) error
	UnsavePost(ctx context.Context, postID, userID string) error
}

// CommentStore reads and writes both comment flavors
type CommentStore interface {
	TargetExists(ctx context.Context, t Target) (bool, error)
	ListComments(ctx context.Context, t Target) ([]Comment, error)
	GetComment(ctx context.Context, flavor CommentFlavor, commentID string) (*Comment, error)
	CreateComment(ctx context.Context, c Comment) (*Comment, error)
	UpdateComment(ctx context.Context, flavor CommentFlavor, commentID, userID, content string) (*Comment, error)
	DeleteComment(ctx context.Context, flavor CommentFlavor, commentID, userID string) error
}

// Store is the full graph accessor implemented by every backend
type Store interface {
	SocialGraph
	UserStore
	WorkspaceStore
	LibraryStore
	PostStore
	CommentStore
	Close() error
}

// PostQuery selects posts by author, newest first. Before, when set,
// replaces Skip with keyset paging.
type PostQuery struct {
	AuthorIDs []string
	Skip      int
	Limit     int
	Before    *Cursor
}

// Cursor is a keyset position in a newest-first post listing
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorAfter returns the cursor that continues after p
func CursorAfter(p Post) Cursor {
	return Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

// Encode renders the cursor as an opaque token
func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Cursor.Encode
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("malformed cursor")
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor time: %w", err)
	}
	return &Cursor{CreatedAt: t, ID: id}, nil
}

// Admits reports whether p sorts strictly after the cursor position in a
// newest-first listing.
func (c Cursor) Admits(p Post) bool {
	if p.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return p.CreatedAt.Equal(c.CreatedAt) && p.ID < c.ID
}
