package ranking

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// mockSource implements Source for testing.
type mockSource struct {
	mu         sync.Mutex
	users      map[string]*domain.User
	follows    map[string][]string
	joined     map[string][]string
	workspaces []domain.Workspace
	members    map[string][]string

	workspacesErr error
	membersErr    error
	memberCalls   int
}

func (m *mockSource) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, apperrors.NewNotFound("user", userID)
}

func (m *mockSource) FolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	return m.follows[userID], nil
}

func (m *mockSource) JoinedWorkspaceIDs(ctx context.Context, userID string) ([]string, error) {
	return m.joined[userID], nil
}

func (m *mockSource) PublicWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	if m.workspacesErr != nil {
		return nil, m.workspacesErr
	}
	return m.workspaces, nil
}

func (m *mockSource) WorkspaceMembers(ctx context.Context, workspaceID string) ([]string, error) {
	m.mu.Lock()
	m.memberCalls++
	m.mu.Unlock()
	if m.membersErr != nil {
		return nil, m.membersErr
	}
	return m.members[workspaceID], nil
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func newTestRecommender(src Source) *Recommender {
	return NewRecommender(src, zap.NewNop(), WithRandSource(seededRand), WithFanOut(3))
}

func idsOf(ws []domain.ScoredWorkspace) []string {
	ids := make([]string, len(ws))
	for i, w := range ws {
		ids[i] = w.ID
	}
	return ids
}

// manyWorkspaces builds n public workspaces whose score never increases with index.
func manyWorkspaces(n int) *mockSource {
	src := &mockSource{
		follows: map[string][]string{"A": nil},
		members: map[string][]string{},
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("w%02d", i)
		// member_count drives activity: 3, 2, 1, then 0
		src.workspaces = append(src.workspaces, domain.Workspace{ID: id, IsPublic: true, MemberCount: 15 - i*5})
	}
	return src
}

func TestRecommend_ConcreteScenario(t *testing.T) {
	field := "Genetics"
	src := &mockSource{
		follows: map[string][]string{"A": {"B", "C"}},
		workspaces: []domain.Workspace{
			{ID: "W", IsPublic: true, ResearchField: "Genetics", ResearchTopics: []string{"Genomics", "Bioinformatics"}, MemberCount: 12, PaperCount: 4},
			{ID: "X", IsPublic: true, ResearchField: "Physics", MemberCount: 3},
		},
		members: map[string][]string{
			"W": {"B", "C", "u3", "u4", "u5", "u6", "u7", "u8", "u9", "u10", "u11", "u12"},
			"X": {"x1", "x2", "x3"},
		},
	}

	got, err := newTestRecommender(src).Recommend(context.Background(), Request{
		UserID:        "A",
		ResearchField: &field,
		Interests:     []string{"Genomics"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "W", got[0].ID)
	// social 10, field 3, topic 1, members 2, papers 1
	assert.Equal(t, 17, got[0].Score)
	assert.Equal(t, "X", got[1].ID)
	assert.Equal(t, 0, got[1].Score)
}

func TestRecommend_ExcludesJoinedAndPrivate(t *testing.T) {
	src := &mockSource{
		joined: map[string][]string{"A": {"joined"}},
		workspaces: []domain.Workspace{
			{ID: "joined", IsPublic: true, MemberCount: 100},
			{ID: "private", IsPublic: false, MemberCount: 100},
			{ID: "open", IsPublic: true},
		},
	}

	got, err := newTestRecommender(src).Recommend(context.Background(), Request{UserID: "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"open"}, idsOf(got))
}

func TestRecommend_NoCandidatesIsEmpty(t *testing.T) {
	got, err := newTestRecommender(&mockSource{}).Recommend(context.Background(), Request{UserID: "A"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecommend_FewerThanSampleReturnsAllRanked(t *testing.T) {
	src := manyWorkspaces(4)

	got, err := newTestRecommender(src).Recommend(context.Background(), Request{UserID: "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"w00", "w01", "w02", "w03"}, idsOf(got))
}

func TestRecommend_SamplesEightFromTopTen(t *testing.T) {
	src := &mockSource{follows: map[string][]string{"A": {"f"}}, members: map[string][]string{}}
	// w05..w14 have the followee as member (score 5), w00..w04 score 0
	top := map[string]bool{}
	for i := 0; i < 15; i++ {
		src.workspaces = append(src.workspaces, domain.Workspace{ID: fmt.Sprintf("w%02d", i), IsPublic: true})
	}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("w%02d", i+5)
		src.members[id] = []string{"f"}
		top[id] = true
	}

	for run := 0; run < 20; run++ {
		rec := NewRecommender(src, zap.NewNop(), WithRandSource(func() *rand.Rand {
			return rand.New(rand.NewPCG(uint64(run), 99))
		}))
		got, err := rec.Recommend(context.Background(), Request{UserID: "A"})
		require.NoError(t, err)
		require.Len(t, got, 8)

		seen := map[string]bool{}
		for _, w := range got {
			assert.True(t, top[w.ID], "sampled %s from outside the top ten", w.ID)
			assert.False(t, seen[w.ID], "duplicate %s in sample", w.ID)
			seen[w.ID] = true
			assert.Equal(t, 5, w.Score)
		}
	}
}

func TestRecommend_NeverMoreThanEight(t *testing.T) {
	for _, n := range []int{0, 1, 8, 9, 10, 11, 40} {
		src := manyWorkspaces(n)
		got, err := NewRecommender(src, zap.NewNop()).Recommend(context.Background(), Request{UserID: "A"})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), min(8, n))
		assert.Len(t, got, min(8, n))
	}
}

func TestRecommend_FallsBackToProfileField(t *testing.T) {
	src := &mockSource{
		users: map[string]*domain.User{"A": {ID: "A", ResearchField: "AI"}},
		workspaces: []domain.Workspace{
			{ID: "ai", IsPublic: true, ResearchField: "AI"},
			{ID: "bio", IsPublic: true, ResearchField: "Biology"},
		},
	}

	got, err := newTestRecommender(src).Recommend(context.Background(), Request{UserID: "A"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ai", got[0].ID)
	assert.Equal(t, 3, got[0].Score)

	override := "Biology"
	got, err = newTestRecommender(src).Recommend(context.Background(), Request{UserID: "A", ResearchField: &override})
	require.NoError(t, err)
	assert.Equal(t, "bio", got[0].ID)
}

func TestRecommend_UnknownUserStillRanks(t *testing.T) {
	src := &mockSource{workspaces: []domain.Workspace{{ID: "w", IsPublic: true}}}

	got, err := newTestRecommender(src).Recommend(context.Background(), Request{UserID: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"w"}, idsOf(got))
}

func TestRecommend_PropagatesStorageFailure(t *testing.T) {
	boom := apperrors.NewUnavailable("public workspaces", errors.New("connection refused"))
	src := &mockSource{workspacesErr: boom}

	_, err := newTestRecommender(src).Recommend(context.Background(), Request{UserID: "A"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))

	src = &mockSource{workspaces: []domain.Workspace{{ID: "w", IsPublic: true}}, membersErr: boom}
	_, err = newTestRecommender(src).Recommend(context.Background(), Request{UserID: "A"})
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestRecommend_LoadsEveryRoster(t *testing.T) {
	src := manyWorkspaces(12)

	_, err := newTestRecommender(src).Recommend(context.Background(), Request{UserID: "A"})
	require.NoError(t, err)
	assert.Equal(t, 12, src.memberCalls)
}

func TestSelectTop_StableTiesAndRankOrder(t *testing.T) {
	scored := []domain.ScoredWorkspace{
		{Workspace: domain.Workspace{ID: "a"}, Score: 1},
		{Workspace: domain.Workspace{ID: "b"}, Score: 3},
		{Workspace: domain.Workspace{ID: "c"}, Score: 1},
		{Workspace: domain.Workspace{ID: "d"}, Score: 3},
	}

	got := SelectTop(scored, seededRand())
	assert.Equal(t, []string{"b", "d", "a", "c"}, idsOf(got))
	assert.Equal(t, "a", scored[0].ID, "input must not be reordered")
}

func TestSelectTop_SampleKeepsRankOrder(t *testing.T) {
	var scored []domain.ScoredWorkspace
	for i := 0; i < 12; i++ {
		scored = append(scored, domain.ScoredWorkspace{Workspace: domain.Workspace{ID: fmt.Sprintf("w%02d", i)}, Score: 100 - i})
	}

	got := SelectTop(scored, seededRand())
	require.Len(t, got, 8)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].Score, got[i].Score)
	}
	for _, w := range got {
		assert.GreaterOrEqual(t, w.Score, 91, "only the top ten are eligible")
	}
}
