// Package comments builds two-tier comment threads and validates comment writes.
package comments

import (
	"sort"

	"scholargraph/backend/internal/domain"
)

// Build turns a flat comment list for one target into root comments with
// their direct replies, both in ascending creation order. Replies whose
// parent is not a root in the list are dropped.
func Build(flat []domain.Comment) []domain.RootComment {
	sorted := make([]domain.Comment, len(flat))
	copy(sorted, flat)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	roots := make([]domain.RootComment, 0)
	index := make(map[string]int)
	for _, c := range sorted {
		if !c.IsRoot() {
			continue
		}
		index[c.ID] = len(roots)
		roots = append(roots, domain.RootComment{
			ID:        c.ID,
			Target:    c.Target,
			UserID:    c.UserID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
			Replies:   []domain.Reply{},
		})
	}

	for _, c := range sorted {
		if c.IsRoot() {
			continue
		}
		i, ok := index[*c.ParentID]
		if !ok {
			continue
		}
		roots[i].Replies = append(roots[i].Replies, domain.Reply{
			ID:        c.ID,
			UserID:    c.UserID,
			ParentID:  *c.ParentID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}

	return roots
}
