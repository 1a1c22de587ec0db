package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

var schemaStatements = []string{
	"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE CONSTRAINT user_email IF NOT EXISTS FOR (u:User) REQUIRE u.email IS UNIQUE",
	"CREATE CONSTRAINT workspace_id IF NOT EXISTS FOR (w:Workspace) REQUIRE w.id IS UNIQUE",
	"CREATE CONSTRAINT paper_id IF NOT EXISTS FOR (p:Paper) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT scrap_id IF NOT EXISTS FOR (s:Scrap) REQUIRE s.id IS UNIQUE",
	"CREATE CONSTRAINT post_id IF NOT EXISTS FOR (p:Post) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT comment_id IF NOT EXISTS FOR (c:Comment) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT post_comment_id IF NOT EXISTS FOR (c:PostComment) REQUIRE c.id IS UNIQUE",
	"CREATE INDEX post_author_created IF NOT EXISTS FOR (p:Post) ON (p.author_id, p.created_at)",
	"CREATE INDEX workspace_public IF NOT EXISTS FOR (w:Workspace) ON (w.is_public)",
	"CREATE INDEX comment_target IF NOT EXISTS FOR (c:Comment) ON (c.target_type, c.target_id)",
	"CREATE INDEX post_comment_post IF NOT EXISTS FOR (c:PostComment) ON (c.post_id)",
}

// EnsureSchema creates the constraints and indexes the queries rely on
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("failed to apply schema statement %q: %w", stmt, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to apply schema statement %q: %w", stmt, err)
		}
	}

	r.logger.Info("Neo4j schema ensured", zap.Int("statements", len(schemaStatements)))
	return nil
}

// Reset deletes every node and relationship
func (r *Repository) Reset(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx, "MATCH (n) CALL { WITH n DETACH DELETE n } IN TRANSACTIONS OF 1000 ROWS", nil)
	if err != nil {
		return fmt.Errorf("failed to reset graph: %w", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return fmt.Errorf("failed to reset graph: %w", err)
	}

	r.logger.Warn("Neo4j graph reset")
	return nil
}
