// Package api exposes recommendations, feeds, comment threads and the
// supporting CRUD over a gin JSON API.
package api

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"scholargraph/backend/internal/comments"
	"scholargraph/backend/internal/domain"
	"scholargraph/backend/internal/feed"
	"scholargraph/backend/internal/ranking"
)

// Options configures the HTTP layer
type Options struct {
	JWTSecret      string
	RequestTimeout time.Duration
	AccessLog      bool
}

// Server holds the handler dependencies
type Server struct {
	store       domain.Store
	recommender *ranking.Recommender
	feed        *feed.Assembler
	comments    *comments.Service
	validate    *validator.Validate
	logger      *zap.Logger
	opts        Options
}

// NewServer creates the handler set
func NewServer(store domain.Store, recommender *ranking.Recommender, assembler *feed.Assembler, commentSvc *comments.Service, logger *zap.Logger, opts Options) *Server {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if opts.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; every authenticated route will reject requests")
	}

	return &Server{
		store:       store,
		recommender: recommender,
		feed:        assembler,
		comments:    commentSvc,
		validate:    v,
		logger:      logger,
		opts:        opts,
	}
}

// Router builds the gin engine with middleware and every route
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	if s.opts.AccessLog {
		router.Use(ginLogger(s.logger))
	}
	router.Use(gin.Recovery())
	router.Use(instrument())
	router.Use(cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(timeout(s.opts.RequestTimeout))
	api.Use(authenticate([]byte(s.opts.JWTSecret), s.logger))
	{
		// Workspaces
		api.GET("/workspaces/recommended", s.recommendWorkspaces)
		api.POST("/workspaces", s.createWorkspace)
		api.GET("/workspaces/:id", s.getWorkspace)
		api.PATCH("/workspaces/:id", s.updateWorkspace)
		api.POST("/workspaces/:id/join", s.joinWorkspace)
		api.DELETE("/workspaces/:id/members/me", s.leaveWorkspace)
		api.POST("/workspaces/:id/papers", s.addWorkspacePaper)

		// Library
		api.POST("/papers", s.createPaper)
		api.POST("/scraps", s.createScrap)

		// Posts
		api.POST("/posts", s.createPost)
		api.GET("/posts", s.listUserPosts)
		api.GET("/posts/feed", s.getFeed)
		api.GET("/posts/:id", s.getPost)
		api.PATCH("/posts/:id", s.updatePost)
		api.DELETE("/posts/:id", s.deletePost)
		api.POST("/posts/:id/like", s.likePost)
		api.DELETE("/posts/:id/like", s.unlikePost)
		api.POST("/posts/:id/save", s.savePost)
		api.DELETE("/posts/:id/save", s.unsavePost)
		api.POST("/posts/:id/comments", s.createPostComment)
		api.GET("/posts/:id/comments", s.listPostComments)
		api.PUT("/posts/:id/comments/:comment_id", s.updatePostComment)
		api.DELETE("/posts/:id/comments/:comment_id", s.deletePostComment)

		// Target comments
		api.POST("/comments", s.createComment)
		api.GET("/comments/target/:type/:id", s.listComments)
		api.PUT("/comments/:id", s.updateComment)
		api.DELETE("/comments/:id", s.deleteComment)

		// Social graph and profile
		api.GET("/users/me", s.getMe)
		api.GET("/users/me/following", s.listFollowing)
		api.GET("/users/me/stats", s.getStats)
		api.GET("/users/:id", s.getUser)
		api.POST("/users/:id/follow", s.follow)
		api.DELETE("/users/:id/follow", s.unfollow)
		api.PATCH("/profile/me", s.updateProfile)
	}

	return router
}
