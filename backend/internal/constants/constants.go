package constants

// Workspace recommendation constants
const (
	// RecommendPoolSize is how many top-scored candidates are eligible for sampling
	RecommendPoolSize = 10
	// RecommendSampleSize is the maximum number of workspaces returned
	RecommendSampleSize = 8
)

// Affinity scoring weights
const (
	// SocialOverlapPoints is awarded per followee who is a workspace member
	SocialOverlapPoints = 5
	// FieldMatchPoints is awarded when the research field matches exactly
	FieldMatchPoints = 3
	// TopicOverlapPoints is awarded per shared research topic
	TopicOverlapPoints = 1

	// MembersPerActivityPoint and MaxMemberActivityPoints bound the member-count term
	MembersPerActivityPoint = 5
	MaxMemberActivityPoints = 3
	// PapersPerActivityPoint and MaxPaperActivityPoints bound the paper-count term
	PapersPerActivityPoint = 3
	MaxPaperActivityPoints = 2
)

// Feed paging constants
const (
	DefaultFeedLimit = 20
	MinFeedLimit     = 1
	MaxFeedLimit     = 100

	// DefaultUserPostsLimit matches the listing endpoint default
	DefaultUserPostsLimit = 100
)

// Fan-out constants
const (
	// DefaultFanOut bounds concurrent per-item storage lookups in one request
	DefaultFanOut = 8
)

// UnknownAuthorName is shown for posts whose author no longer resolves
const UnknownAuthorName = "Unknown"
