package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jasurdev/portfolio-api/internal/home"
	"github.com/jasurdev/portfolio-api/internal/posts"
	"github.com/jasurdev/portfolio-api/internal/profile"
	"github.com/jasurdev/portfolio-api/internal/projects"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/tags"
	"go.uber.org/zap"
)

const adminContextKey = "portfolio_admin"

var (
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingAuthenticator  = errors.New("authenticator dependency required")
	errMissingPostsService   = errors.New("posts service dependency required")
	errMissingProjectService = errors.New("projects service dependency required")
	errMissingReactions      = errors.New("reaction services dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates admin bearer tokens.
type TokenManager interface {
	IssueToken(ctx context.Context, subject string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Authenticator checks admin credentials and returns the canonical username.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
}

type Dependencies struct {
	TokenManager     TokenManager
	Authenticator    Authenticator
	PostsService     *posts.Service
	ProjectsService  *projects.Service
	PostReactions    *reactions.Service
	ProjectReactions *reactions.Service
	TagsService      *tags.Service
	ProfileService   *profile.Service
	HomeService      *home.Service
	Identity         reactions.IdentityResolver
	Realtime         *RealtimeDispatcher
	AllowedOrigins   []string
	MediaRoot        string
	MediaURLPrefix   string
	Logger           *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Authenticator == nil {
		return nil, errMissingAuthenticator
	}
	if deps.PostsService == nil {
		return nil, errMissingPostsService
	}
	if deps.ProjectsService == nil {
		return nil, errMissingProjectService
	}
	if deps.PostReactions == nil || deps.ProjectReactions == nil {
		return nil, errMissingReactions
	}
	if err := registerValidations(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mediaPrefix := deps.MediaURLPrefix
	if mediaPrefix == "" {
		mediaPrefix = "/media/"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		tokens:           deps.TokenManager,
		accounts:         deps.Authenticator,
		posts:            deps.PostsService,
		projects:         deps.ProjectsService,
		postReactions:    deps.PostReactions,
		projectReactions: deps.ProjectReactions,
		tags:             deps.TagsService,
		profile:          deps.ProfileService,
		home:             deps.HomeService,
		identity:         deps.Identity,
		realtime:         deps.Realtime,
		mediaPrefix:      mediaPrefix,
		logger:           logger,
	}

	api := router.Group("/api")
	api.POST("/auth/token/", handler.handleIssueToken)

	api.GET("/posts/", handler.handleListPosts)
	api.GET("/posts/:id/", handler.handleGetPost)
	api.POST("/posts/:id/like/", handler.handleTogglePostLike)
	api.POST("/posts/:id/comments/", handler.handleAddPostComment)

	api.GET("/projects/", handler.handleListProjects)
	api.GET("/projects/:id/", handler.handleGetProject)
	api.POST("/projects/:id/like/", handler.handleToggleProjectLike)
	api.POST("/projects/:id/comments/", handler.handleAddProjectComment)

	api.GET("/events/reactions", handler.handleReactionStream)

	admin := api.Group("/")
	admin.Use(handler.authorizeRequest)
	admin.POST("/posts/", handler.handleCreatePost)
	admin.PUT("/posts/:id/", handler.handleUpdatePost)
	admin.PATCH("/posts/:id/", handler.handlePatchPost)
	admin.DELETE("/posts/:id/", handler.handleDeletePost)
	admin.POST("/projects/", handler.handleCreateProject)
	admin.PUT("/projects/:id/", handler.handleUpdateProject)
	admin.PATCH("/projects/:id/", handler.handlePatchProject)
	admin.DELETE("/projects/:id/", handler.handleDeleteProject)

	if handler.tags != nil {
		api.GET("/tags/", handler.handleListTags)
		admin.POST("/tags/", handler.handleCreateTag)
	}

	if handler.profile != nil {
		api.GET("/about-me/", handler.handleGetAboutMe)
		api.GET("/about-me/skills/", handler.handleListSkills)
		api.GET("/about-me/experiences/", handler.handleListExperiences)
		api.GET("/about-me/experiences/:id/", handler.handleGetExperience)
		api.GET("/about-me/certificates/", handler.handleListCertificates)
		api.GET("/about-me/certificates/:id/", handler.handleGetCertificate)

		admin.PUT("/about-me/", handler.handleUpdateAboutMe)
		admin.POST("/about-me/skills/", handler.handleCreateSkill)
		admin.PUT("/about-me/skills/:id/", handler.handleUpdateSkill)
		admin.DELETE("/about-me/skills/:id/", handler.handleDeleteSkill)
		admin.POST("/about-me/experiences/", handler.handleCreateExperience)
		admin.PUT("/about-me/experiences/:id/", handler.handleUpdateExperience)
		admin.DELETE("/about-me/experiences/:id/", handler.handleDeleteExperience)
		admin.POST("/about-me/certificates/", handler.handleCreateCertificate)
		admin.PUT("/about-me/certificates/:id/", handler.handleUpdateCertificate)
		admin.DELETE("/about-me/certificates/:id/", handler.handleDeleteCertificate)
	}

	if handler.home != nil {
		api.GET("/home/", handler.handleGetHome)
		admin.PUT("/home/", handler.handleUpdateHome)
	}

	if strings.TrimSpace(deps.MediaRoot) != "" {
		router.Static(mediaPrefix, deps.MediaRoot)
	}

	return router, nil
}

type httpHandler struct {
	tokens           TokenManager
	accounts         Authenticator
	posts            *posts.Service
	projects         *projects.Service
	postReactions    *reactions.Service
	projectReactions *reactions.Service
	tags             *tags.Service
	profile          *profile.Service
	home             *home.Service
	identity         reactions.IdentityResolver
	realtime         *RealtimeDispatcher
	mediaPrefix      string
	logger           *zap.Logger
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || containsWildcard(allowedOrigins) {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(adminContextKey, subject)
	c.Next()
}
