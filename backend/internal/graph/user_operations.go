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
// User Operations
// ============================================================================

func userFromMap(m map[string]interface{}) domain.User {
	return domain.User{
		ID:                getStringFromMap(m, "id", ""),
		Email:             getStringFromMap(m, "email", ""),
		FullName:          getStringFromMap(m, "full_name", ""),
		ProfileImageURL:   getStringFromMap(m, "profile_image_url", ""),
		Institution:       getStringFromMap(m, "institution", ""),
		Department:        getStringFromMap(m, "department", ""),
		ResearchField:     getStringFromMap(m, "research_field", ""),
		ResearchInterests: getStringSliceFromMap(m, "research_interests"),
		CreatedAt:         getTimeFromMap(m, "created_at"),
	}
}

func userParams(u domain.User) map[string]interface{} {
	return map[string]interface{}{
		"id":                 u.ID,
		"email":              u.Email,
		"full_name":          u.FullName,
		"profile_image_url":  u.ProfileImageURL,
		"institution":        u.Institution,
		"department":         u.Department,
		"research_field":     u.ResearchField,
		"research_interests": stringsParam(u.ResearchInterests),
	}
}

func isConstraintViolation(err error) bool {
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && neoErr.Code == "Neo.ClientError.Schema.ConstraintValidationFailed"
}

// CreateUser creates a user node, generating an id when none is given
func (r *Repository) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}

	query := `
		CREATE (u:User)
		SET u = $props, u.created_at = datetime($now)
		RETURN u {.*} as user
	`
	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"props": userParams(u),
		"now":   timestamp(u.CreatedAt),
	})
	if err != nil {
		if isConstraintViolation(err) {
			return nil, apperrors.NewConflict("user", u.Email)
		}
		return nil, unavailable("create user", err)
	}
	if len(records) == 0 {
		return nil, unavailable("create user", errors.New("no record returned"))
	}

	created := userFromMap(getMapFromRecord(records[0], "user"))
	return &created, nil
}

// GetUser loads one user
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	records, err := r.collect(ctx, neo4j.AccessModeRead,
		`MATCH (u:User {id: $userID}) RETURN u {.*} as user`,
		map[string]interface{}{"userID": userID},
	)
	if err != nil {
		return nil, unavailable("get user", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFound("user", userID)
	}

	u := userFromMap(getMapFromRecord(records[0], "user"))
	return &u, nil
}

// UsersByIDs loads the users that exist among ids
func (r *Repository) UsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	records, err := r.collect(ctx, neo4j.AccessModeRead,
		`MATCH (u:User) WHERE u.id IN $ids RETURN u {.*} as user`,
		map[string]interface{}{"ids": ids},
	)
	if err != nil {
		return nil, unavailable("users by ids", err)
	}
	for _, record := range records {
		u := userFromMap(getMapFromRecord(record, "user"))
		out[u.ID] = u
	}
	return out, nil
}

// UpdateProfile applies a partial profile update
func (r *Repository) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.User, error) {
	updated, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		record, err := single(ctx, tx, `MATCH (u:User {id: $userID}) RETURN u {.*} as user`,
			map[string]interface{}{"userID": userID})
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, apperrors.NewNotFound("user", userID)
		}

		u := userFromMap(getMapFromRecord(record, "user"))
		patch.Apply(&u)

		query := `
			MATCH (u:User {id: $userID})
			SET u.full_name = $full_name,
			    u.profile_image_url = $profile_image_url,
			    u.institution = $institution,
			    u.department = $department,
			    u.research_field = $research_field,
			    u.research_interests = $research_interests
		`
		params := userParams(u)
		params["userID"] = userID
		if _, err := tx.Run(ctx, query, params); err != nil {
			return nil, err
		}
		return &u, nil
	})
	if err != nil {
		return nil, unavailable("update profile", err)
	}

	r.logger.Debug("Profile updated", zap.String("user_id", userID))
	return updated.(*domain.User), nil
}

// ============================================================================
// Follow Operations
// ============================================================================

// FolloweeIDs lists who the user follows. Unknown users follow nobody.
func (r *Repository) FolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		MATCH (:User {id: $userID})-[f:FOLLOWS]->(b:User)
		RETURN b.id as id
		ORDER BY f.created_at ASC
	`
	records, err := r.collect(ctx, neo4j.AccessModeRead, query, map[string]interface{}{"userID": userID})
	if err != nil {
		return nil, unavailable("followee ids", err)
	}

	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, getStringFromRecord(record, "id"))
	}
	return ids, nil
}

// FollowStats counts followers and followees
func (r *Repository) FollowStats(ctx context.Context, userID string) (domain.FollowStats, error) {
	query := `
		OPTIONAL MATCH (follower:User)-[:FOLLOWS]->(:User {id: $userID})
		WITH count(follower) as followers
		OPTIONAL MATCH (:User {id: $userID})-[:FOLLOWS]->(following:User)
		RETURN followers, count(following) as following
	`
	records, err := r.collect(ctx, neo4j.AccessModeRead, query, map[string]interface{}{"userID": userID})
	if err != nil {
		return domain.FollowStats{}, unavailable("follow stats", err)
	}
	if len(records) == 0 {
		return domain.FollowStats{}, nil
	}
	return domain.FollowStats{
		Followers: getIntFromRecord(records[0], "followers"),
		Following: getIntFromRecord(records[0], "following"),
	}, nil
}

// Follow adds a follow edge. Following twice is a no-op.
func (r *Repository) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return apperrors.NewValidation("following_id", "cannot follow yourself")
	}

	query := `
		MATCH (b:User {id: $followingID})
		MERGE (a:User {id: $followerID})
		MERGE (a)-[f:FOLLOWS]->(b)
		ON CREATE SET f.created_at = datetime($now)
		RETURN b.id as id
	`
	records, err := r.collect(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"followerID":  followerID,
		"followingID": followingID,
		"now":         timestamp(r.now()),
	})
	if err != nil {
		return unavailable("follow", err)
	}
	if len(records) == 0 {
		return apperrors.NewNotFound("user", followingID)
	}
	return nil
}

// Unfollow removes a follow edge. A missing edge is a no-op.
func (r *Repository) Unfollow(ctx context.Context, followerID, followingID string) error {
	query := `
		MATCH (:User {id: $followerID})-[f:FOLLOWS]->(:User {id: $followingID})
		DELETE f
	`
	if _, err := r.collect(ctx, neo4j.AccessModeWrite, query, map[string]interface{}{
		"followerID":  followerID,
		"followingID": followingID,
	}); err != nil {
		return unavailable("unfollow", err)
	}
	return nil
}
