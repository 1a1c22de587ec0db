package domain

// Patches enumerate exactly the mutable fields of an entity. A nil field is
// left untouched; a non-nil field replaces the stored value.

// ProfilePatch updates a user's profile
type ProfilePatch struct {
	FullName          *string   `json:"full_name" validate:"omitempty,min=1,max=200"`
	ProfileImageURL   *string   `json:"profile_image_url" validate:"omitempty,max=2048"`
	Institution       *string   `json:"institution" validate:"omitempty,max=200"`
	Department        *string   `json:"department" validate:"omitempty,max=200"`
	ResearchField     *string   `json:"research_field" validate:"omitempty,max=100"`
	ResearchInterests *[]string `json:"research_interests" validate:"omitempty,max=50,dive,min=1,max=100"`
}

// Apply merges the patch into u
func (p ProfilePatch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.ProfileImageURL != nil {
		u.ProfileImageURL = *p.ProfileImageURL
	}
	if p.Institution != nil {
		u.Institution = *p.Institution
	}
	if p.Department != nil {
		u.Department = *p.Department
	}
	if p.ResearchField != nil {
		u.ResearchField = *p.ResearchField
	}
	if p.ResearchInterests != nil {
		u.ResearchInterests = append([]string(nil), (*p.ResearchInterests)...)
	}
}

// WorkspacePatch updates a workspace's descriptive fields. Owner, roster and
// counters are not patchable.
type WorkspacePatch struct {
	Name           *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Description    *string   `json:"description" validate:"omitempty,max=5000"`
	ResearchField  *string   `json:"research_field" validate:"omitempty,max=100"`
	ResearchTopics *[]string `json:"research_topics" validate:"omitempty,max=50,dive,min=1,max=100"`
	IsPublic       *bool     `json:"is_public"`
}

// Apply merges the patch into w
func (p WorkspacePatch) Apply(w *Workspace) {
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Description != nil {
		w.Description = *p.Description
	}
	if p.ResearchField != nil {
		w.ResearchField = *p.ResearchField
	}
	if p.ResearchTopics != nil {
		w.ResearchTopics = append([]string(nil), (*p.ResearchTopics)...)
	}
	if p.IsPublic != nil {
		w.IsPublic = *p.IsPublic
	}
}

// PostPatch updates a post
type PostPatch struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=300"`
	Content     *string   `json:"content" validate:"omitempty,min=1"`
	PaperTitle  *string   `json:"paper_title" validate:"omitempty,max=500"`
	KeyInsights *[]string `json:"key_insights" validate:"omitempty,max=20"`
	PaperID     *string   `json:"paper_id"`
}

// Apply merges the patch into p. An empty PaperID detaches the paper.
func (p PostPatch) Apply(post *Post) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.PaperTitle != nil {
		post.PaperTitle = *p.PaperTitle
	}
	if p.KeyInsights != nil {
		post.KeyInsights = append([]string(nil), (*p.KeyInsights)...)
	}
	if p.PaperID != nil {
		if *p.PaperID == "" {
			post.PaperID = nil
		} else {
			id := *p.PaperID
			post.PaperID = &id
		}
	}
}
