package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scholargraph/backend/internal/api"
	"scholargraph/backend/internal/comments"
	"scholargraph/backend/internal/domain"
	"scholargraph/backend/internal/graph"
	"scholargraph/backend/internal/store"
	"scholargraph/backend/pkg/config"
	"scholargraph/backend/pkg/logger"
)

// seedable is a store that can also prepare and wipe its schema
type seedable interface {
	domain.Store
	Reset(ctx context.Context) error
}

func main() {
	reset := flag.Bool("reset", false, "Wipe all data before seeding")
	schemaOnly := flag.Bool("schema-only", false, "Apply constraints, indexes or tables and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed demo tokens")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	s, err := open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer s.Close()

	if *reset {
		log.Warn("Resetting all data", zap.String("store_backend", cfg.StoreBackend))
		if err := s.Reset(ctx); err != nil {
			log.Fatal("Failed to reset store", zap.Error(err))
		}
	}
	if *schemaOnly {
		log.Info("Schema applied")
		return
	}

	users, err := seed(ctx, s, log)
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty, skipping demo tokens")
		return
	}
	for _, u := range users {
		token, err := api.IssueToken([]byte(cfg.JWTSecret), u.ID, *tokenTTL)
		if err != nil {
			log.Fatal("Failed to sign token", zap.Error(err))
		}
		fmt.Printf("%-16s %s\n", u.FullName, token)
	}
}

func open(ctx context.Context, cfg *config.Config) (seedable, error) {
	if cfg.StoreBackend == config.BackendSQL {
		s, err := store.Open(cfg, logger.Named("store"))
		if err != nil {
			return nil, err
		}
		return s, s.Migrate(ctx)
	}

	repo, err := graph.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return repo, repo.EnsureSchema(ctx)
}

func seed(ctx context.Context, s domain.Store, log *zap.Logger) ([]*domain.User, error) {
	profiles := []domain.User{
		{Email: "ada@lab.example", FullName: "Ada Byron", Institution: "Analytical Institute", ResearchField: "Computer Science", ResearchInterests: []string{"Machine Learning", "Graphs"}},
		{Email: "rosalind@lab.example", FullName: "Rosalind Franklin", Institution: "King's Lab", ResearchField: "Biology", ResearchInterests: []string{"Crystallography", "Genomics"}},
		{Email: "alan@lab.example", FullName: "Alan Turing", Institution: "Bletchley", ResearchField: "Computer Science", ResearchInterests: []string{"Computability", "Machine Learning"}},
		{Email: "barbara@lab.example", FullName: "Barbara McClintock", Institution: "Cold Spring", ResearchField: "Biology", ResearchInterests: []string{"Genomics"}},
		{Email: "emmy@lab.example", FullName: "Emmy Noether", Institution: "Göttingen", ResearchField: "Mathematics", ResearchInterests: []string{"Algebra", "Graphs"}},
	}

	users := make([]*domain.User, 0, len(profiles))
	for _, p := range profiles {
		u, err := s.CreateUser(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create user %s: %w", p.Email, err)
		}
		users = append(users, u)
	}
	log.Info("Created users", zap.Int("count", len(users)))

	follows := [][2]int{{0, 2}, {0, 4}, {1, 3}, {2, 0}, {3, 1}, {4, 0}, {4, 2}}
	for _, f := range follows {
		if err := s.Follow(ctx, users[f[0]].ID, users[f[1]].ID); err != nil {
			return nil, fmt.Errorf("follow: %w", err)
		}
	}

	workspaces := []struct {
		owner int
		ws    domain.Workspace
	}{
		{2, domain.Workspace{Name: "Learning Machines", ResearchField: "Computer Science", ResearchTopics: []string{"Machine Learning", "Computability"}, IsPublic: true}},
		{3, domain.Workspace{Name: "Genome Readers", ResearchField: "Biology", ResearchTopics: []string{"Genomics"}, IsPublic: true}},
		{4, domain.Workspace{Name: "Graph Theory Circle", ResearchField: "Mathematics", ResearchTopics: []string{"Graphs", "Algebra"}, IsPublic: true}},
		{1, domain.Workspace{Name: "Private Diffraction Lab", ResearchField: "Biology", ResearchTopics: []string{"Crystallography"}, IsPublic: false}},
	}
	created := make([]*domain.Workspace, 0, len(workspaces))
	for _, w := range workspaces {
		w.ws.OwnerID = users[w.owner].ID
		ws, err := s.CreateWorkspace(ctx, w.ws)
		if err != nil {
			return nil, fmt.Errorf("create workspace %s: %w", w.ws.Name, err)
		}
		created = append(created, ws)
	}
	if _, err := s.JoinWorkspace(ctx, created[0].ID, users[4].ID); err != nil {
		return nil, fmt.Errorf("join workspace: %w", err)
	}
	log.Info("Created workspaces", zap.Int("count", len(created)))

	paper, err := s.CreatePaper(ctx, domain.Paper{
		Title:      "On Computable Numbers",
		Authors:    []string{"A. M. Turing"},
		UploaderID: users[2].ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create paper: %w", err)
	}
	if err := s.AddWorkspacePaper(ctx, created[0].ID, paper.ID); err != nil {
		return nil, fmt.Errorf("attach paper: %w", err)
	}

	page := 3
	if _, err := s.CreateScrap(ctx, domain.Scrap{
		UserID:      users[0].ID,
		PaperID:     &paper.ID,
		WorkspaceID: &created[0].ID,
		Content:     "a computable number is one whose decimal can be written down by a machine",
		PageNumber:  &page,
	}); err != nil {
		return nil, fmt.Errorf("create scrap: %w", err)
	}

	svc := comments.NewService(s, log.Named("comments"))
	base := time.Now().UTC().Add(-48 * time.Hour)
	for i, u := range users {
		post, err := s.CreatePost(ctx, domain.Post{
			AuthorID:    u.ID,
			Title:       fmt.Sprintf("Notes from %s", u.Institution),
			Content:     "Reading group summary.",
			KeyInsights: u.ResearchInterests,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		if i > 0 {
			if err := s.LikePost(ctx, post.ID, users[0].ID); err != nil {
				return nil, fmt.Errorf("like post: %w", err)
			}
			continue
		}

		root, err := svc.AddComment(ctx, comments.NewComment{
			Target:  domain.Target{Type: domain.TargetPost, ID: post.ID},
			UserID:  users[2].ID,
			Content: "Which chapter did you cover?",
		})
		if err != nil {
			return nil, fmt.Errorf("comment on post: %w", err)
		}
		if _, err := svc.AddComment(ctx, comments.NewComment{
			Target:   domain.Target{Type: domain.TargetPost, ID: post.ID},
			UserID:   u.ID,
			Content:  "The second one.",
			ParentID: &root.ID,
		}); err != nil {
			return nil, fmt.Errorf("reply on post: %w", err)
		}
	}

	if _, err := svc.AddComment(ctx, comments.NewComment{
		Target:  domain.Target{Type: domain.TargetGroupPaper, ID: paper.ID},
		UserID:  users[4].ID,
		Content: "Worth rereading section 9 alongside the group notes.",
	}); err != nil {
		return nil, fmt.Errorf("comment on paper: %w", err)
	}

	log.Info("Seeding complete")
	return users, nil
}
