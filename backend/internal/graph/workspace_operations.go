package graph

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"scholargraph/backend/internal/domain"
	apperrors "scholargraph/backend/pkg/errors"
)

// ============================================================================
// Workspace Operations
// ============================================================================

func workspaceFromMap(m map[string]interface{}) domain.Workspace {
	return domain.Workspace{
		ID:             getStringFromMap(m, "id", ""),
		Name:           getStringFromMap(m, "name", ""),
		Description:    getStringFromMap(m, "description", ""),
		ResearchField:  getStringFromMap(m, "research_field", ""),
		ResearchTopics: getStringSliceFromMap(m, "research_topics"),
		IsPublic:       getBoolFromMap(m, "is_public"),
		OwnerID:        getStringFromMap(m, "owner_id", ""),
		MemberCount:    getIntFromMap(m, "member_count"),
		PaperCount:     getIntFromMap(m, "paper_count"),
		CreatedAt:      getTimeFromMap(m, "created_at"),
		UpdatedAt:      getTimeFromMap(m, "updated_at"),
	}
}

// JoinedWorkspaceIDs lists workspaces the user belongs to
func (r *Repository) JoinedWorkspaceIDs(ctx context.Context, userID string) ([]string, error) {
	records, err := r.collect(ctx, neo4j.AccessModeRead,
		`MATCH (:User {id: $userID})-[:MEMBER_OF]->(w:Workspace) RETURN w.id as id`,
		map[string]interface{}{"userID": userID},
	)
	if err != nil {
		return nil, unavailable("joined workspace ids", err)
	}

	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, getStringFromRecord(record, "id"))
	}
	return ids, nil
}

// WorkspaceMembers lists a workspace's member ids in join order
func (r *Repository) WorkspaceMembers(ctx context.Context, workspaceID string) ([]string, error) {
	query := `
		MATCH (u:User)-[m:MEMBER_OF]->(:Workspace {id: $workspaceID})
		RETURN u.id as id
		ORDER BY m.joined_at ASC, u.id ASC
	`
	records, err := r.collect(ctx, neo4j.AccessModeRead, query, map[string]interface{}{"workspaceID": workspaceID})
	if err != nil {
		return nil, unavailable("workspace members", err)
	}

	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, getStringFromRecord(record, "id"))
	}
	return ids, nil
}

// PublicWorkspaces enumerates public workspaces, oldest first
func (r *Repository) PublicWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	query := `
		MATCH (w:Workspace)
		WHERE w.is_public = true
		RETURN w {.*} as workspace
		ORDER BY w.created_at ASC, w.id ASC
	`
	records, err := r.collect(ctx, neo4j.AccessModeRead, query, nil)
	if err != nil {
		return nil, unavailable("public workspaces", err)
	}

	out := make([]domain.Workspace, 0, len(records))
	for _, record := range records {
		out = append(out, workspaceFromMap(getMapFromRecord(record, "workspace")))
	}
	return out, nil
}

// GetWorkspace loads a workspace and repairs a stale member_count
func (r *Repository) GetWorkspace(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	query := `
		MATCH (w:Workspace {id: $workspaceID})
		OPTIONAL MATCH (m:User)-[:MEMBER_OF]->(w)
		RETURN w {.*} as workspace, count(m) as actual
	`
	records, err := r.collect(ctx, neo4j.AccessModeRead, query, map[string]interface{}{"workspaceID": workspaceID})
	if err != nil {
		return nil, unavailable("get workspace", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFound("workspace", workspaceID)
	}

	w := workspaceFromMap(getMapFromRecord(records[0], "workspace"))
	actual := getIntFromRecord(records[0], "actual")
	if actual != w.MemberCount {
		r.logger.Warn("Repairing stale member count",
			zap.String("workspace_id", workspaceID),
			zap.Int("stored", w.MemberCount),
			zap.Int("actual", actual),
		)
		if _, err := r.collect(ctx, neo4j.AccessModeWrite,
			`MATCH (w:Workspace {id: $workspaceID}) SET w.member_count = $actual`,
			map[string]interface{}{"workspaceID": workspaceID, "actual": actual},
		); err != nil {
			return nil, unavailable("repair member count", err)
		}
		w.MemberCount = actual
	}
	return &w, nil
}

// CreateWorkspace creates a workspace with its owner as the first admin member
func (r *Repository) CreateWorkspace(ctx context.Context, w domain.Workspace) (*domain.Workspace, error) {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := r.now()
	w.CreatedAt, w.UpdatedAt = now, now
	w.MemberCount = 1
	w.PaperCount = 0

	query := `
		MERGE (o:User {id: $ownerID})
		CREATE (w:Workspace {
			id: $id,
			name: $name,
			description: $description,
			research_field: $research_field,
			research_topics: $research_topics,
			is_public: $is_public,
			owner_id: $ownerID,
			member_count: 1,
			paper_count: 0,
			created_at: datetime($now),
			updated_at: datetime($now)
		})
		CREATE (o)-[:MEMBER_OF {role: $role, joined_at: datetime($now)}]->(w)
		RETURN w {.*} as workspace
	`
	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"id":              w.ID,
		"name":            w.Name,
		"description":     w.Description,
		"research_field":  w.ResearchField,
		"research_topics": stringsParam(w.ResearchTopics),
		"is_public":       w.IsPublic,
		"ownerID":         w.OwnerID,
		"role":            domain.RoleAdmin,
		"now":             timestamp(now),
	})
	if err != nil {
		return nil, unavailable("create workspace", err)
	}
	if len(records) == 0 {
		return nil, unavailable("create workspace", errors.New("no record returned"))
	}

	r.logger.Info("Workspace created", zap.String("workspace_id", w.ID), zap.String("owner_id", w.OwnerID))
	created := workspaceFromMap(getMapFromRecord(records[0], "workspace"))
	return &created, nil
}

// UpdateWorkspace applies a partial update to the descriptive fields
func (r *Repository) UpdateWorkspace(ctx context.Context, workspaceID string, patch domain.WorkspacePatch) (*domain.Workspace, error) {
	updated, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		record, err := single(ctx, tx, `MATCH (w:Workspace {id: $workspaceID}) RETURN w {.*} as workspace`,
			map[string]interface{}{"workspaceID": workspaceID})
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, apperrors.NewNotFound("workspace", workspaceID)
		}

		w := workspaceFromMap(getMapFromRecord(record, "workspace"))
		patch.Apply(&w)
		w.UpdatedAt = r.now()

		query := `
			MATCH (w:Workspace {id: $workspaceID})
			SET w.name = $name,
			    w.description = $description,
			    w.research_field = $research_field,
			    w.research_topics = $research_topics,
			    w.is_public = $is_public,
			    w.updated_at = datetime($now)
		`
		if _, err := tx.Run(ctx, query, map[string]interface{}{
			"workspaceID":     workspaceID,
			"name":            w.Name,
			"description":     w.Description,
			"research_field":  w.ResearchField,
			"research_topics": stringsParam(w.ResearchTopics),
			"is_public":       w.IsPublic,
			"now":             timestamp(w.UpdatedAt),
		}); err != nil {
			return nil, err
		}
		return &w, nil
	})
	if err != nil {
		return nil, unavailable("update workspace", err)
	}
	return updated.(*domain.Workspace), nil
}

// lockWorkspace takes the workspace node's write lock for the rest of the
// transaction, so membership checks and counter updates see committed edges
const lockWorkspace = `SET w._lock = true REMOVE w._lock WITH w`

// JoinWorkspace adds a member and increments member_count in one transaction
func (r *Repository) JoinWorkspace(ctx context.Context, workspaceID, userID string) (*domain.WorkspaceMember, error) {
	joinedAt := r.now()

	_, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		check := `
			MATCH (w:Workspace {id: $workspaceID})
			` + lockWorkspace + `
			OPTIONAL MATCH (:User {id: $userID})-[m:MEMBER_OF]->(w)
			RETURN w.is_public as is_public, m IS NOT NULL as is_member
		`
		params := map[string]interface{}{
			"workspaceID": workspaceID,
			"userID":      userID,
			"role":        domain.RoleMember,
			"now":         timestamp(joinedAt),
		}
		record, err := single(ctx, tx, check, params)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, apperrors.NewNotFound("workspace", workspaceID)
		}
		if !getBoolFromRecord(record, "is_public") {
			return nil, apperrors.NewForbidden("join workspace", "workspace is private")
		}
		if getBoolFromRecord(record, "is_member") {
			return nil, apperrors.NewConflict("workspace member", userID)
		}

		join := `
			MATCH (w:Workspace {id: $workspaceID})
			MERGE (u:User {id: $userID})
			CREATE (u)-[:MEMBER_OF {role: $role, joined_at: datetime($now)}]->(w)
			SET w.member_count = coalesce(w.member_count, 0) + 1
		`
		_, err = tx.Run(ctx, join, params)
		return nil, err
	})
	if err != nil {
		return nil, unavailable("join workspace", err)
	}

	r.logger.Info("Workspace joined", zap.String("workspace_id", workspaceID), zap.String("user_id", userID))
	return &domain.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        domain.RoleMember,
		JoinedAt:    joinedAt,
	}, nil
}

// LeaveWorkspace removes a member and decrements member_count in one transaction.
// The owner cannot leave.
func (r *Repository) LeaveWorkspace(ctx context.Context, workspaceID, userID string) error {
	_, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		params := map[string]interface{}{"workspaceID": workspaceID, "userID": userID}

		owner := `
			MATCH (w:Workspace {id: $workspaceID})
			` + lockWorkspace + `
			RETURN w.owner_id as owner_id
		`
		record, err := single(ctx, tx, owner, params)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, apperrors.NewNotFound("workspace", workspaceID)
		}
		if getStringFromRecord(record, "owner_id") == userID {
			return nil, apperrors.NewForbidden("leave workspace", "the owner cannot leave")
		}

		leave := `
			MATCH (:User {id: $userID})-[m:MEMBER_OF]->(w:Workspace {id: $workspaceID})
			DELETE m
			SET w.member_count = CASE WHEN w.member_count > 0 THEN w.member_count - 1 ELSE 0 END
			RETURN w.id as id
		`
		record, err = single(ctx, tx, leave, params)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, apperrors.NewNotFound("workspace member", userID)
		}
		return nil, nil
	})
	if err != nil {
		return unavailable("leave workspace", err)
	}

	r.logger.Info("Workspace left", zap.String("workspace_id", workspaceID), zap.String("user_id", userID))
	return nil
}

// AddWorkspacePaper attaches a paper and bumps paper_count. Attaching twice is a no-op.
func (r *Repository) AddWorkspacePaper(ctx context.Context, workspaceID, paperID string) error {
	_, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		params := map[string]interface{}{
			"workspaceID": workspaceID,
			"paperID":     paperID,
			"now":         timestamp(r.now()),
		}

		check := `
			OPTIONAL MATCH (w:Workspace {id: $workspaceID})
			OPTIONAL MATCH (p:Paper {id: $paperID})
			RETURN w IS NOT NULL as has_workspace, p IS NOT NULL as has_paper
		`
		record, err := single(ctx, tx, check, params)
		if err != nil {
			return nil, err
		}
		if record == nil || !getBoolFromRecord(record, "has_workspace") {
			return nil, apperrors.NewNotFound("workspace", workspaceID)
		}
		if !getBoolFromRecord(record, "has_paper") {
			return nil, apperrors.NewNotFound("paper", paperID)
		}

		attach := `
			MATCH (w:Workspace {id: $workspaceID}), (p:Paper {id: $paperID})
			MERGE (w)-[h:HAS_PAPER]->(p)
			ON CREATE SET h.status = 'active', h.added_at = datetime($now), w.paper_count = coalesce(w.paper_count, 0) + 1
		`
		_, err = tx.Run(ctx, attach, params)
		return nil, err
	})
	if err != nil {
		return unavailable("add workspace paper", err)
	}
	return nil
}
