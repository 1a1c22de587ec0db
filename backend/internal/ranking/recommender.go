package ranking

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scholargraph/backend/internal/constants"
	"scholargraph/backend/internal/domain"
	"scholargraph/backend/internal/metrics"
	apperrors "scholargraph/backend/pkg/errors"
)

// Source is the slice of the graph accessor the recommender reads
type Source interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	FolloweeIDs(ctx context.Context, userID string) ([]string, error)
	JoinedWorkspaceIDs(ctx context.Context, userID string) ([]string, error)
	PublicWorkspaces(ctx context.Context) ([]domain.Workspace, error)
	WorkspaceMembers(ctx context.Context, workspaceID string) ([]string, error)
}

// Request asks for workspace recommendations. A nil ResearchField falls back
// to the user's stored profile field; Interests never fall back.
type Request struct {
	UserID        string
	ResearchField *string
	Interests     []string
}

// Recommender ranks unjoined public workspaces and samples a diverse top set.
// It holds no mutable state and is safe for concurrent use.
type Recommender struct {
	source  Source
	logger  *zap.Logger
	fanOut  int
	newRand func() *rand.Rand
}

// Option configures a Recommender
type Option func(*Recommender)

// WithFanOut bounds concurrent roster lookups per request
func WithFanOut(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.fanOut = n
		}
	}
}

// WithRandSource replaces the per-request random source factory
func WithRandSource(fn func() *rand.Rand) Option {
	return func(r *Recommender) {
		if fn != nil {
			r.newRand = fn
		}
	}
}

// NewRecommender creates a recommender over the given source
func NewRecommender(source Source, logger *zap.Logger, opts ...Option) *Recommender {
	r := &Recommender{
		source: source,
		logger: logger,
		fanOut: constants.DefaultFanOut,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend returns at most RecommendSampleSize workspaces the user has not
// joined. An empty result is not an error.
func (r *Recommender) Recommend(ctx context.Context, req Request) ([]domain.ScoredWorkspace, error) {
	start := time.Now()
	defer func() { metrics.RecommendDuration.Observe(metrics.Since(start)) }()

	profile, err := r.loadProfile(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates, err := r.loadCandidates(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	metrics.RecommendCandidates.Observe(float64(len(candidates)))

	scored := make([]domain.ScoredWorkspace, len(candidates))
	for i, c := range candidates {
		scored[i] = domain.ScoredWorkspace{Workspace: c.Workspace, Score: Score(profile, c)}
	}

	result := SelectTop(scored, r.newRand())

	r.logger.Debug("Workspace recommendations computed",
		zap.String("user_id", req.UserID),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(result)),
		zap.Duration("latency", time.Since(start)),
	)

	return result, nil
}

// SelectTop ranks scored workspaces by descending score, keeps the top
// RecommendPoolSize, and when that pool is larger than RecommendSampleSize
// draws a uniform sample of RecommendSampleSize from it. Ties keep input
// order. The result is in rank order.
func SelectTop(scored []domain.ScoredWorkspace, rnd *rand.Rand) []domain.ScoredWorkspace {
	ranked := make([]domain.ScoredWorkspace, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	pool := ranked[:min(len(ranked), constants.RecommendPoolSize)]
	if len(pool) <= constants.RecommendSampleSize {
		return pool
	}

	picks := rnd.Perm(len(pool))[:constants.RecommendSampleSize]
	sort.Ints(picks)

	sample := make([]domain.ScoredWorkspace, 0, len(picks))
	for _, i := range picks {
		sample = append(sample, pool[i])
	}
	return sample
}

func (r *Recommender) loadProfile(ctx context.Context, req Request) (Profile, error) {
	followees, err := r.source.FolloweeIDs(ctx, req.UserID)
	if err != nil {
		return Profile{}, fmt.Errorf("load followees: %w", err)
	}

	field := ""
	if req.ResearchField != nil {
		field = *req.ResearchField
	} else {
		user, err := r.source.GetUser(ctx, req.UserID)
		switch {
		case err == nil:
			field = user.ResearchField
		case apperrors.IsNotFound(err):
		default:
			return Profile{}, fmt.Errorf("load profile: %w", err)
		}
	}

	return NewProfile(followees, field, req.Interests), nil
}

// loadCandidates returns public workspaces the user has not joined, each with
// its roster, in the accessor's enumeration order.
func (r *Recommender) loadCandidates(ctx context.Context, userID string) ([]Candidate, error) {
	joined, err := r.source.JoinedWorkspaceIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load joined workspaces: %w", err)
	}
	exclude := make(map[string]struct{}, len(joined))
	for _, id := range joined {
		exclude[id] = struct{}{}
	}

	public, err := r.source.PublicWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("load public workspaces: %w", err)
	}

	candidates := make([]Candidate, 0, len(public))
	for _, w := range public {
		if !w.IsPublic {
			continue
		}
		if _, ok := exclude[w.ID]; ok {
			continue
		}
		candidates = append(candidates, Candidate{Workspace: w})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanOut)
	for i := range candidates {
		idx := i
		g.Go(func() error {
			members, err := r.source.WorkspaceMembers(gctx, candidates[idx].Workspace.ID)
			if err != nil {
				return fmt.Errorf("load members of %s: %w", candidates[idx].Workspace.ID, err)
			}
			candidates[idx].MemberIDs = members
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return candidates, nil
}
