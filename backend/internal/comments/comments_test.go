package comments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

func at(minutes int) time.Time { return t0.Add(time.Duration(minutes) * time.Minute) }

func TestBuild_RootsAndRepliesAscending(t *testing.T) {
	paper := domain.Target{Type: domain.TargetPaper, ID: "p1"}
	flat := []domain.Comment{
		{ID: "r2", Target: paper, ParentID: ptr("root1"), CreatedAt: at(5)},
		{ID: "root2", Target: paper, CreatedAt: at(2)},
		{ID: "root1", Target: paper, CreatedAt: at(1)},
		{ID: "r1", Target: paper, ParentID: ptr("root1"), CreatedAt: at(3)},
		{ID: "r3", Target: paper, ParentID: ptr("root2"), CreatedAt: at(4)},
	}

	roots := Build(flat)
	require.Len(t, roots, 2)
	assert.Equal(t, "root1", roots[0].ID)
	assert.Equal(t, "root2", roots[1].ID)

	require.Len(t, roots[0].Replies, 2)
	assert.Equal(t, "r1", roots[0].Replies[0].ID)
	assert.Equal(t, "r2", roots[0].Replies[1].ID)
	require.Len(t, roots[1].Replies, 1)

	for _, root := range roots {
		for _, reply := range root.Replies {
			assert.Equal(t, root.ID, reply.ParentID)
		}
	}
}

func TestBuild_DropsNestedAndOrphanReplies(t *testing.T) {
	flat := []domain.Comment{
		{ID: "root", CreatedAt: at(0)},
		{ID: "reply", ParentID: ptr("root"), CreatedAt: at(1)},
		{ID: "nested", ParentID: ptr("reply"), CreatedAt: at(2)},
		{ID: "orphan", ParentID: ptr("gone"), CreatedAt: at(3)},
	}

	roots := Build(flat)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Replies, 1)
	assert.Equal(t, "reply", roots[0].Replies[0].ID)
}

func TestBuild_EmptyInput(t *testing.T) {
	roots := Build(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

// mockStore implements Store in memory
type mockStore struct {
	targets  map[domain.Target]bool
	comments map[domain.CommentFlavor]map[string]domain.Comment
	seq      int
	listErr  error
}

func newMockStore(targets ...domain.Target) *mockStore {
	m := &mockStore{
		targets: map[domain.Target]bool{},
		comments: map[domain.CommentFlavor]map[string]domain.Comment{
			domain.FlavorTarget: {},
			domain.FlavorPost:   {},
		},
	}
	for _, t := range targets {
		m.targets[t] = true
	}
	return m
}

func (m *mockStore) TargetExists(ctx context.Context, t domain.Target) (bool, error) {
	return m.targets[t], nil
}

func (m *mockStore) ListComments(ctx context.Context, t domain.Target) ([]domain.Comment, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Comment
	for _, c := range m.comments[t.Flavor()] {
		if c.Target == t {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) GetComment(ctx context.Context, flavor domain.CommentFlavor, id string) (*domain.Comment, error) {
	c, ok := m.comments[flavor][id]
	if !ok {
		return nil, apperrors.NewNotFound("comment", id)
	}
	return &c, nil
}

func (m *mockStore) CreateComment(ctx context.Context, c domain.Comment) (*domain.Comment, error) {
	m.seq++
	c.ID = fmt.Sprintf("c%d", m.seq)
	c.CreatedAt = at(m.seq)
	c.UpdatedAt = c.CreatedAt
	m.comments[c.Target.Flavor()][c.ID] = c
	return &c, nil
}

func (m *mockStore) UpdateComment(ctx context.Context, flavor domain.CommentFlavor, id, userID, content string) (*domain.Comment, error) {
	c := m.comments[flavor][id]
	c.Content = content
	m.comments[flavor][id] = c
	return &c, nil
}

func (m *mockStore) DeleteComment(ctx context.Context, flavor domain.CommentFlavor, id, userID string) error {
	delete(m.comments[flavor], id)
	for cid, c := range m.comments[flavor] {
		if c.ParentID != nil && *c.ParentID == id {
			delete(m.comments[flavor], cid)
		}
	}
	return nil
}

var (
	paper = domain.Target{Type: domain.TargetPaper, ID: "paper-1"}
	other = domain.Target{Type: domain.TargetScrap, ID: "scrap-1"}
	post  = domain.Target{Type: domain.TargetPost, ID: "post-1"}
)

func TestAddComment_RootAndReply(t *testing.T) {
	svc := NewService(newMockStore(paper), zap.NewNop())
	ctx := context.Background()

	root, err := svc.AddComment(ctx, NewComment{Target: paper, UserID: "u1", Content: "  Nice result  "})
	require.NoError(t, err)
	assert.Equal(t, "Nice result", root.Content)

	reply, err := svc.AddComment(ctx, NewComment{Target: paper, UserID: "u2", Content: "Agreed", ParentID: &root.ID})
	require.NoError(t, err)

	threads, err := svc.GetComments(ctx, paper)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	require.Len(t, threads[0].Replies, 1)
	assert.Equal(t, reply.ID, threads[0].Replies[0].ID)
}

func TestAddComment_Validation(t *testing.T) {
	store := newMockStore(paper, other)
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	root, err := svc.AddComment(ctx, NewComment{Target: paper, UserID: "u1", Content: "root"})
	require.NoError(t, err)
	reply, err := svc.AddComment(ctx, NewComment{Target: paper, UserID: "u1", Content: "reply", ParentID: &root.ID})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  NewComment
		want apperrors.ErrorType
	}{
		{"missing target", NewComment{Target: domain.Target{Type: domain.TargetPaper, ID: "nope"}, Content: "x"}, apperrors.ErrorTypeNotFound},
		{"missing parent", NewComment{Target: paper, Content: "x", ParentID: ptr("nope")}, apperrors.ErrorTypeNotFound},
		{"parent on other target", NewComment{Target: other, Content: "x", ParentID: &root.ID}, apperrors.ErrorTypeInvalidParent},
		{"reply to reply", NewComment{Target: paper, Content: "x", ParentID: &reply.ID}, apperrors.ErrorTypeInvalidParent},
		{"empty content", NewComment{Target: paper, Content: "   "}, apperrors.ErrorTypeValidation},
		{"unknown type", NewComment{Target: domain.Target{Type: "video", ID: "v"}, Content: "x"}, apperrors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddComment(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsErrorType(err, tt.want), "got %v", err)
		})
	}
}

func TestPostComments_SeparateFlavor(t *testing.T) {
	store := newMockStore(post, paper)
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	onPost, err := svc.AddComment(ctx, NewComment{Target: post, UserID: "u1", Content: "on post"})
	require.NoError(t, err)

	// a post-comment id cannot parent a comment in the target flavor
	_, err = svc.AddComment(ctx, NewComment{Target: paper, UserID: "u1", Content: "x", ParentID: &onPost.ID})
	assert.True(t, apperrors.IsNotFound(err))

	threads, err := svc.GetPostComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, onPost.ID, threads[0].ID)
}

func TestGetComments_UnknownTargetIsEmpty(t *testing.T) {
	svc := NewService(newMockStore(), zap.NewNop())

	threads, err := svc.GetComments(context.Background(), paper)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestGetComments_PropagatesStoreFailure(t *testing.T) {
	store := newMockStore(paper)
	store.listErr = apperrors.NewUnavailable("list comments", errors.New("reset by peer"))
	svc := NewService(store, zap.NewNop())

	_, err := svc.GetComments(context.Background(), paper)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestUpdateAndDelete_OwnerOnly(t *testing.T) {
	store := newMockStore(paper)
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	root, err := svc.AddComment(ctx, NewComment{Target: paper, UserID: "owner", Content: "v1"})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, NewComment{Target: paper, UserID: "friend", Content: "reply", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = svc.UpdateComment(ctx, domain.FlavorTarget, root.ID, "intruder", "v2")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeForbidden))

	updated, err := svc.UpdateComment(ctx, domain.FlavorTarget, root.ID, "owner", "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Content)

	err = svc.DeleteComment(ctx, domain.FlavorTarget, root.ID, "intruder")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeForbidden))

	require.NoError(t, svc.DeleteComment(ctx, domain.FlavorTarget, root.ID, "owner"))
	threads, err := svc.GetComments(ctx, paper)
	require.NoError(t, err)
	assert.Empty(t, threads)
	assert.Empty(t, store.comments[domain.FlavorTarget], "replies are removed with their root")

	err = svc.DeleteComment(ctx, domain.FlavorTarget, root.ID, "owner")
	assert.True(t, apperrors.IsNotFound(err))
}
