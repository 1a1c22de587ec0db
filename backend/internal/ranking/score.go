package ranking

import (
	"scholargraph/backend/internal/constants"
	"scholargraph/backend/internal/domain"
)

// Profile is the requesting side of an affinity score: who the user follows
// and what they are asking for.
type Profile struct {
	Followees     map[string]struct{}
	ResearchField string
	Interests     map[string]struct{}
}

// NewProfile builds a Profile from raw id and tag lists
func NewProfile(followeeIDs []string, researchField string, interests []string) Profile {
	p := Profile{
		Followees:     make(map[string]struct{}, len(followeeIDs)),
		ResearchField: researchField,
		Interests:     make(map[string]struct{}, len(interests)),
	}
	for _, id := range followeeIDs {
		p.Followees[id] = struct{}{}
	}
	for _, topic := range interests {
		p.Interests[topic] = struct{}{}
	}
	return p
}

// Candidate is a workspace together with its member roster
type Candidate struct {
	Workspace domain.Workspace
	MemberIDs []string
}

// Breakdown is the per-term decomposition of an affinity score
type Breakdown struct {
	Social   int `json:"social"`
	Field    int `json:"field"`
	Topic    int `json:"topic"`
	Activity int `json:"activity"`
}

// Total sums the terms
func (b Breakdown) Total() int {
	return b.Social + b.Field + b.Topic + b.Activity
}

// Score returns the affinity of the profile for the candidate workspace
func Score(p Profile, c Candidate) int {
	return Explain(p, c).Total()
}

// Explain computes every term of the affinity score.
// Field and topic comparisons are exact string matches.
func Explain(p Profile, c Candidate) Breakdown {
	return Breakdown{
		Social:   socialOverlap(p.Followees, c.MemberIDs),
		Field:    fieldMatch(p.ResearchField, c.Workspace.ResearchField),
		Topic:    topicOverlap(p.Interests, c.Workspace.ResearchTopics),
		Activity: activity(c.Workspace.MemberCount, c.Workspace.PaperCount),
	}
}

func socialOverlap(followees map[string]struct{}, members []string) int {
	if len(followees) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(members))
	overlap := 0
	for _, id := range members {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := followees[id]; ok {
			overlap++
		}
	}
	return overlap * constants.SocialOverlapPoints
}

func fieldMatch(requested, workspace string) int {
	if requested == "" || requested != workspace {
		return 0
	}
	return constants.FieldMatchPoints
}

func topicOverlap(interests map[string]struct{}, topics []string) int {
	if len(interests) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		if _, ok := interests[topic]; ok {
			seen[topic] = struct{}{}
		}
	}
	return len(seen) * constants.TopicOverlapPoints
}

func activity(memberCount, paperCount int) int {
	return capped(memberCount/constants.MembersPerActivityPoint, constants.MaxMemberActivityPoints) +
		capped(paperCount/constants.PapersPerActivityPoint, constants.MaxPaperActivityPoints)
}

func capped(v, limit int) int {
	if v < 0 {
		return 0
	}
	return min(v, limit)
}
