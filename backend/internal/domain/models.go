package domain

import "time"

// Workspace roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Comment target types. TargetPost selects the post-comment flavor.
const (
	TargetPaper      = "paper"
	TargetScrap      = "scrap"
	TargetGroupPaper = "group_paper"
	TargetGroupScrap = "group_scrap"
	TargetPost       = "post"
)

// User is a platform member and their research profile
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	ProfileImageURL   string    `json:"profile_image_url,omitempty"`
	Institution       string    `json:"institution,omitempty"`
	Department        string    `json:"department,omitempty"`
	ResearchField     string    `json:"research_field,omitempty"`
	ResearchInterests []string  `json:"research_interests"`
	CreatedAt         time.Time `json:"created_at"`
}

// FollowStats counts edges on both sides of a user
type FollowStats struct {
	Followers int `json:"followers_count"`
	Following int `json:"following_count"`
}

// Workspace is a research community
type Workspace struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ResearchField  string    `json:"research_field"`
	ResearchTopics []string  `json:"research_topics"`
	IsPublic       bool      `json:"is_public"`
	OwnerID        string    `json:"owner_id"`
	MemberCount    int       `json:"member_count"`
	PaperCount     int       `json:"paper_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorkspaceMember is one row of a workspace roster
type WorkspaceMember struct {
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Paper is bibliographic metadata
type Paper struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Abstract      string     `json:"abstract,omitempty"`
	Authors       []string   `json:"authors"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	UploaderID    string     `json:"uploader_id,omitempty"`
}

// Scrap is an excerpt a user clipped from a paper. WorkspaceID is set when
// the scrap is shared into a workspace.
type Scrap struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PaperID     *string   `json:"paper_id,omitempty"`
	WorkspaceID *string   `json:"workspace_id,omitempty"`
	Content     string    `json:"content"`
	Note        string    `json:"note,omitempty"`
	PageNumber  *int      `json:"page_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Post is authored content, optionally about a paper
type Post struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	PaperTitle  string    `json:"paper_title,omitempty"`
	KeyInsights []string  `json:"key_insights"`
	PaperID     *string   `json:"paper_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Engagement holds the per-post counters and viewer-relative flags
type Engagement struct {
	Likes    int  `json:"like_count"`
	Saves    int  `json:"save_count"`
	Comments int  `json:"comment_count"`
	IsLiked  bool `json:"is_liked"`
	IsSaved  bool `json:"is_saved"`
}

// PostWithEngagement is a feed item
type PostWithEngagement struct {
	Post
	AuthorName         string `json:"author_name"`
	AuthorProfileImage string `json:"author_profile_image,omitempty"`
	Engagement
}

// Target identifies what a comment is attached to
type Target struct {
	Type string `json:"target_type"`
	ID   string `json:"target_id"`
}

// CommentFlavor selects one of the two comment collections
type CommentFlavor string

const (
	FlavorTarget CommentFlavor = "target"
	FlavorPost   CommentFlavor = "post"
)

// Flavor returns the comment collection the target's comments live in
func (t Target) Flavor() CommentFlavor {
	if t.Type == TargetPost {
		return FlavorPost
	}
	return FlavorTarget
}

// ValidTargetType reports whether typ names a commentable entity
func ValidTargetType(typ string) bool {
	switch typ {
	case TargetPaper, TargetScrap, TargetGroupPaper, TargetGroupScrap, TargetPost:
		return true
	}
	return false
}

// Comment is the stored shape of both comment flavors
type Comment struct {
	ID        string    `json:"id"`
	Target    Target    `json:"target"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	ParentID  *string   `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot reports whether the comment has no parent
func (c Comment) IsRoot() bool {
	return c.ParentID == nil
}

// Reply is a direct answer to a root comment
type Reply struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ParentID  string    `json:"parent_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RootComment is a top-level comment with its replies in creation order
type RootComment struct {
	ID        string    `json:"id"`
	Target    Target    `json:"target"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Replies   []Reply   `json:"replies"`
}

// ScoredWorkspace is a recommendation result
type ScoredWorkspace struct {
	Workspace
	Score int `json:"score"`
}
