package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := New(db, zap.NewNop())
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, name string) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), domain.User{
		Email:    name + "@lab.example",
		FullName: name,
	})
	require.NoError(t, err)
	return u
}

func mustWorkspace(t *testing.T, s *Store, ownerID string, public bool) *domain.Workspace {
	t.Helper()
	w, err := s.CreateWorkspace(context.Background(), domain.Workspace{
		Name:           "Genomics Circle",
		ResearchField:  "Genetics",
		ResearchTopics: []string{"Genomics"},
		IsPublic:       public,
		OwnerID:        ownerID,
	})
	require.NoError(t, err)
	return w
}

func TestFollow_IdempotentWithStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, b, c := mustUser(t, s, "ana"), mustUser(t, s, "ben"), mustUser(t, s, "cy")

	require.NoError(t, s.Follow(ctx, a.ID, b.ID))
	require.NoError(t, s.Follow(ctx, a.ID, b.ID))
	require.NoError(t, s.Follow(ctx, a.ID, c.ID))
	require.NoError(t, s.Follow(ctx, c.ID, b.ID))

	ids, err := s.FolloweeIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, ids)

	stats, err := s.FollowStats(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FollowStats{Followers: 2, Following: 0}, stats)

	require.NoError(t, s.Unfollow(ctx, a.ID, b.ID))
	require.NoError(t, s.Unfollow(ctx, a.ID, b.ID))
	ids, err = s.FolloweeIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids)
}

func TestFollow_Rejections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustUser(t, s, "ana")

	err := s.Follow(ctx, a.ID, a.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	err = s.Follow(ctx, a.ID, "ghost")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReads_UnknownIDsAreEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	followees, err := s.FolloweeIDs(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, followees)
	assert.Empty(t, followees)

	joined, err := s.JoinedWorkspaceIDs(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, joined)

	members, err := s.WorkspaceMembers(ctx, "nowhere")
	require.NoError(t, err)
	assert.Empty(t, members)

	eng, err := s.PostEngagement(ctx, "no-post", "nobody")
	require.NoError(t, err)
	assert.Equal(t, domain.Engagement{}, eng)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustUser(t, s, "ana")

	field := "Genetics"
	interests := []string{"Genomics", "CRISPR"}
	updated, err := s.UpdateProfile(ctx, a.ID, domain.ProfilePatch{ResearchField: &field, ResearchInterests: &interests})
	require.NoError(t, err)
	assert.Equal(t, "Genetics", updated.ResearchField)
	assert.Equal(t, "ana", updated.FullName)

	got, err := s.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, interests, got.ResearchInterests)

	_, err = s.UpdateProfile(ctx, "ghost", domain.ProfilePatch{ResearchField: &field})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateWorkspace_OwnerIsAdminMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "owner")

	w := mustWorkspace(t, s, owner.ID, true)
	assert.Equal(t, 1, w.MemberCount)

	members, err := s.WorkspaceMembers(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{owner.ID}, members)

	joined, err := s.JoinedWorkspaceIDs(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{w.ID}, joined)
}

func TestJoinWorkspace_Rules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner, guest := mustUser(t, s, "owner"), mustUser(t, s, "guest")
	public := mustWorkspace(t, s, owner.ID, true)
	private := mustWorkspace(t, s, owner.ID, false)

	m, err := s.JoinWorkspace(ctx, public.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, m.Role)

	_, err = s.JoinWorkspace(ctx, public.ID, guest.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))

	_, err = s.JoinWorkspace(ctx, private.ID, guest.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeForbidden))

	_, err = s.JoinWorkspace(ctx, "missing", guest.ID)
	assert.True(t, apperrors.IsNotFound(err))

	w, err := s.GetWorkspace(ctx, public.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, w.MemberCount)
}

func TestJoinWorkspace_ConcurrentJoinsDoNotUndercount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "owner")
	w := mustWorkspace(t, s, owner.ID, true)

	const joiners = 25
	var wg sync.WaitGroup
	errs := make(chan error, joiners)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.JoinWorkspace(ctx, w.ID, fmt.Sprintf("user-%02d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// PublicWorkspaces reads the stored counter without repairing it
	all, err := s.PublicWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, joiners+1, all[0].MemberCount)
}

func TestLeaveWorkspace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner, guest := mustUser(t, s, "owner"), mustUser(t, s, "guest")
	w := mustWorkspace(t, s, owner.ID, true)
	_, err := s.JoinWorkspace(ctx, w.ID, guest.ID)
	require.NoError(t, err)

	err = s.LeaveWorkspace(ctx, w.ID, owner.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeForbidden))

	require.NoError(t, s.LeaveWorkspace(ctx, w.ID, guest.ID))
	err = s.LeaveWorkspace(ctx, w.ID, guest.ID)
	assert.True(t, apperrors.IsNotFound(err))

	got, err := s.GetWorkspace(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MemberCount)
}

func TestGetWorkspace_RepairsStaleMemberCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "owner")
	w := mustWorkspace(t, s, owner.ID, true)

	require.NoError(t, s.db.Model(&WorkspaceModel{}).Where("id = ?", w.ID).UpdateColumn("member_count", 40).Error)

	got, err := s.GetWorkspace(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MemberCount)

	var stored WorkspaceModel
	require.NoError(t, s.db.First(&stored, "id = ?", w.ID).Error)
	assert.Equal(t, 1, stored.MemberCount)
}

func TestUpdateWorkspace_Patch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "owner")
	w := mustWorkspace(t, s, owner.ID, true)

	closed := false
	topics := []string{"Proteomics"}
	got, err := s.UpdateWorkspace(ctx, w.ID, domain.WorkspacePatch{IsPublic: &closed, ResearchTopics: &topics})
	require.NoError(t, err)
	assert.False(t, got.IsPublic)
	assert.Equal(t, "Genomics Circle", got.Name)

	public, err := s.PublicWorkspaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)
}

func TestPublicWorkspaces_EnumerationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "owner")

	var want []string
	for i := 0; i < 4; i++ {
		w := mustWorkspace(t, s, owner.ID, i != 2)
		if i != 2 {
			want = append(want, w.ID)
		}
		time.Sleep(2 * time.Millisecond)
	}

	got, err := s.PublicWorkspaces(ctx)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, w := range got {
		ids[i] = w.ID
		assert.Equal(t, []string{"Genomics"}, w.ResearchTopics)
	}
	assert.Equal(t, want, ids)
}

func TestAddWorkspacePaper_CountsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "owner")
	w := mustWorkspace(t, s, owner.ID, true)
	p, err := s.CreatePaper(ctx, domain.Paper{Title: "Deep Genomes", Authors: []string{"Lee", "Park"}})
	require.NoError(t, err)

	require.NoError(t, s.AddWorkspacePaper(ctx, w.ID, p.ID))
	require.NoError(t, s.AddWorkspacePaper(ctx, w.ID, p.ID))

	got, err := s.GetWorkspace(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PaperCount)

	err = s.AddWorkspacePaper(ctx, w.ID, "no-paper")
	assert.True(t, apperrors.IsNotFound(err))
}

func seedPosts(t *testing.T, s *Store, authors []string, perAuthor int) []domain.Post {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var out []domain.Post
	for i := 0; i < perAuthor; i++ {
		for j, author := range authors {
			p, err := s.CreatePost(context.Background(), domain.Post{
				AuthorID:  author,
				Title:     fmt.Sprintf("post %d by %s", i, author),
				Content:   "body",
				CreatedAt: base.Add(time.Duration(i*len(authors)+j) * time.Minute),
			})
			require.NoError(t, err)
			out = append(out, *p)
		}
	}
	return out
}

func TestPostsByAuthors_OffsetPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedPosts(t, s, []string{"b", "c", "d"}, 15)

	first, err := s.PostsByAuthors(ctx, domain.PostQuery{AuthorIDs: []string{"b", "c"}, Limit: 20})
	require.NoError(t, err)
	second, err := s.PostsByAuthors(ctx, domain.PostQuery{AuthorIDs: []string{"b", "c"}, Skip: 20, Limit: 20})
	require.NoError(t, err)
	require.Len(t, first, 20)
	require.Len(t, second, 10)

	seen := map[string]bool{}
	all := append(first, second...)
	for i, p := range all {
		assert.NotEqual(t, "d", p.AuthorID)
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
		if i > 0 {
			assert.True(t, p.CreatedAt.Before(all[i-1].CreatedAt), "descending order at %d", i)
		}
	}

	none, err := s.PostsByAuthors(ctx, domain.PostQuery{Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostsByAuthors_KeysetPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	posts := seedPosts(t, s, []string{"b"}, 9)
	// same timestamp as the newest post; id breaks the tie
	_, err := s.CreatePost(ctx, domain.Post{AuthorID: "b", Title: "tie", CreatedAt: posts[len(posts)-1].CreatedAt})
	require.NoError(t, err)

	var (
		cursor *domain.Cursor
		ids    []string
	)
	for i := 0; i < 5; i++ {
		page, err := s.PostsByAuthors(ctx, domain.PostQuery{AuthorIDs: []string{"b"}, Limit: 3, Before: cursor})
		require.NoError(t, err)
		for _, p := range page {
			ids = append(ids, p.ID)
		}
		if len(page) < 3 {
			break
		}
		c := domain.CursorAfter(page[len(page)-1])
		cursor = &c
	}

	offset, err := s.PostsByAuthors(ctx, domain.PostQuery{AuthorIDs: []string{"b"}, Limit: 100})
	require.NoError(t, err)
	want := make([]string, len(offset))
	for i, p := range offset {
		want[i] = p.ID
	}
	assert.Equal(t, want, ids)
	assert.Len(t, ids, 10)
}

func TestLikeAndSave_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	post := seedPosts(t, s, []string{"b"}, 1)[0]

	require.NoError(t, s.LikePost(ctx, post.ID, "viewer"))
	require.NoError(t, s.LikePost(ctx, post.ID, "viewer"))
	require.NoError(t, s.LikePost(ctx, post.ID, "other"))
	require.NoError(t, s.SavePost(ctx, post.ID, "other"))
	require.NoError(t, s.SavePost(ctx, post.ID, "other"))

	var likes int64
	require.NoError(t, s.db.Model(&LikeModel{}).Where("post_id = ? AND user_id = ?", post.ID, "viewer").Count(&likes).Error)
	assert.Equal(t, int64(1), likes)

	eng, err := s.PostEngagement(ctx, post.ID, "viewer")
	require.NoError(t, err)
	assert.Equal(t, domain.Engagement{Likes: 2, Saves: 1, IsLiked: true, IsSaved: false}, eng)

	require.NoError(t, s.UnlikePost(ctx, post.ID, "viewer"))
	err = s.UnlikePost(ctx, post.ID, "viewer")
	assert.True(t, apperrors.IsNotFound(err))
	err = s.UnsavePost(ctx, post.ID, "viewer")
	assert.True(t, apperrors.IsNotFound(err))

	err = s.LikePost(ctx, "no-post", "viewer")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdatePost_AuthorOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	paperID := "paper-1"
	post, err := s.CreatePost(ctx, domain.Post{AuthorID: "b", Title: "draft", PaperID: &paperID})
	require.NoError(t, err)

	title := "final"
	_, err = s.UpdatePost(ctx, post.ID, "intruder", domain.PostPatch{Title: &title})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeForbidden))

	detach := ""
	updated, err := s.UpdatePost(ctx, post.ID, "b", domain.PostPatch{Title: &title, PaperID: &detach})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Nil(t, got.PaperID)
}

func TestDeletePost_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	post := seedPosts(t, s, []string{"b"}, 1)[0]
	require.NoError(t, s.LikePost(ctx, post.ID, "v"))
	require.NoError(t, s.SavePost(ctx, post.ID, "v"))
	_, err := s.CreateComment(ctx, domain.Comment{Target: domain.Target{Type: domain.TargetPost, ID: post.ID}, UserID: "v", Content: "hi"})
	require.NoError(t, err)

	err = s.DeletePost(ctx, post.ID, "v")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeForbidden))

	require.NoError(t, s.DeletePost(ctx, post.ID, "b"))

	_, err = s.GetPost(ctx, post.ID)
	assert.True(t, apperrors.IsNotFound(err))
	eng, err := s.PostEngagement(ctx, post.ID, "v")
	require.NoError(t, err)
	assert.Equal(t, domain.Engagement{}, eng)
}

func TestTargetExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "owner")
	w := mustWorkspace(t, s, owner.ID, true)
	paper, err := s.CreatePaper(ctx, domain.Paper{Title: "P"})
	require.NoError(t, err)
	shared, err := s.CreatePaper(ctx, domain.Paper{Title: "Shared"})
	require.NoError(t, err)
	require.NoError(t, s.AddWorkspacePaper(ctx, w.ID, shared.ID))
	scrap, err := s.CreateScrap(ctx, domain.Scrap{UserID: owner.ID, Content: "excerpt"})
	require.NoError(t, err)
	groupScrap, err := s.CreateScrap(ctx, domain.Scrap{UserID: owner.ID, Content: "shared excerpt", WorkspaceID: &w.ID})
	require.NoError(t, err)
	post := seedPosts(t, s, []string{owner.ID}, 1)[0]

	tests := []struct {
		target domain.Target
		want   bool
	}{
		{domain.Target{Type: domain.TargetPaper, ID: paper.ID}, true},
		{domain.Target{Type: domain.TargetPaper, ID: "nope"}, false},
		{domain.Target{Type: domain.TargetGroupPaper, ID: shared.ID}, true},
		{domain.Target{Type: domain.TargetGroupPaper, ID: paper.ID}, false},
		{domain.Target{Type: domain.TargetScrap, ID: scrap.ID}, true},
		{domain.Target{Type: domain.TargetGroupScrap, ID: groupScrap.ID}, true},
		{domain.Target{Type: domain.TargetGroupScrap, ID: scrap.ID}, false},
		{domain.Target{Type: domain.TargetPost, ID: post.ID}, true},
		{domain.Target{Type: "video", ID: post.ID}, false},
	}
	for _, tt := range tests {
		got, err := s.TargetExists(ctx, tt.target)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s", tt.target.Type, tt.target.ID)
	}
}

func TestComments_FlavorsAndCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	paper := domain.Target{Type: domain.TargetPaper, ID: "paper-1"}
	post := domain.Target{Type: domain.TargetPost, ID: "post-1"}

	root, err := s.CreateComment(ctx, domain.Comment{Target: paper, UserID: "u1", Content: "root"})
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, domain.Comment{Target: paper, UserID: "u2", Content: "reply", ParentID: &root.ID})
	require.NoError(t, err)
	onPost, err := s.CreateComment(ctx, domain.Comment{Target: post, UserID: "u1", Content: "post root"})
	require.NoError(t, err)

	flat, err := s.ListComments(ctx, paper)
	require.NoError(t, err)
	require.Len(t, flat, 2)
	assert.Equal(t, root.ID, flat[0].ID)

	_, err = s.GetComment(ctx, domain.FlavorTarget, onPost.ID)
	assert.True(t, apperrors.IsNotFound(err), "post comments live in their own table")
	got, err := s.GetComment(ctx, domain.FlavorPost, onPost.ID)
	require.NoError(t, err)
	assert.Equal(t, post, got.Target)

	updated, err := s.UpdateComment(ctx, domain.FlavorTarget, root.ID, "u1", "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	_, err = s.UpdateComment(ctx, domain.FlavorTarget, root.ID, "u2", "hijack")
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, s.DeleteComment(ctx, domain.FlavorTarget, root.ID, "u1"))
	flat, err = s.ListComments(ctx, paper)
	require.NoError(t, err)
	assert.Empty(t, flat)

	eng, err := s.PostEngagement(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, eng.Comments)
}

func TestClosedDatabaseIsUnavailable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.FolloweeIDs(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}
