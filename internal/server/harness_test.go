package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jasurdev/portfolio-api/internal/accounts"
	"github.com/jasurdev/portfolio-api/internal/auth"
	"github.com/jasurdev/portfolio-api/internal/cache"
	"github.com/jasurdev/portfolio-api/internal/comments"
	"github.com/jasurdev/portfolio-api/internal/database"
	"github.com/jasurdev/portfolio-api/internal/home"
	"github.com/jasurdev/portfolio-api/internal/ids"
	"github.com/jasurdev/portfolio-api/internal/posts"
	"github.com/jasurdev/portfolio-api/internal/profile"
	"github.com/jasurdev/portfolio-api/internal/projects"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/subject"
	"github.com/jasurdev/portfolio-api/internal/tags"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testAdminUsername = "admin"
	testAdminPassword = "admin-password"
)

type testApp struct {
	handler      http.Handler
	db           *gorm.DB
	posts        *posts.Service
	projects     *projects.Service
	postStore    *reactions.GormStore
	projectStore *reactions.GormStore
	realtime     *RealtimeDispatcher
	tokens       *auth.TokenIssuer
	adminToken   string
}

func newTestApp(testContext *testing.T) *testApp {
	testContext.Helper()
	return newTestAppWithIdentity(testContext, reactions.IdentityResolver{TrustForwardedFor: true})
}

func newTestAppWithIdentity(testContext *testing.T, identity reactions.IdentityResolver) *testApp {
	testContext.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := database.Open(database.DriverSQLite, filepath.Join(testContext.TempDir(), "server.db"), logger)
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	if err := database.Migrate(db, logger); err != nil {
		testContext.Fatalf("failed to migrate database: %v", err)
	}

	var clockMu sync.Mutex
	tick := time.Unix(1700000000, 0)
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}

	tagService, err := tags.NewService(db, logger)
	if err != nil {
		testContext.Fatalf("tags service: %v", err)
	}
	postStore, err := reactions.NewGormStore(db, subject.KindPost, clock)
	if err != nil {
		testContext.Fatalf("post reaction store: %v", err)
	}
	projectStore, err := reactions.NewGormStore(db, subject.KindProject, clock)
	if err != nil {
		testContext.Fatalf("project reaction store: %v", err)
	}
	postComments, err := comments.NewService(comments.Config{Database: db, Kind: subject.KindPost, Clock: clock, Logger: logger})
	if err != nil {
		testContext.Fatalf("post comments: %v", err)
	}
	projectComments, err := comments.NewService(comments.Config{Database: db, Kind: subject.KindProject, Clock: clock, Logger: logger})
	if err != nil {
		testContext.Fatalf("project comments: %v", err)
	}
	postService, err := posts.NewService(posts.ServiceConfig{
		Database:   db,
		Tags:       tagService,
		Reactions:  postStore,
		Comments:   postComments,
		IDProvider: ids.NewUUIDProvider(),
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		testContext.Fatalf("posts service: %v", err)
	}
	projectService, err := projects.NewService(projects.ServiceConfig{
		Database:   db,
		Tags:       tagService,
		Reactions:  projectStore,
		Comments:   projectComments,
		IDProvider: ids.NewUUIDProvider(),
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		testContext.Fatalf("projects service: %v", err)
	}
	profileService, err := profile.NewService(profile.ServiceConfig{Database: db, Clock: clock, Logger: logger})
	if err != nil {
		testContext.Fatalf("profile service: %v", err)
	}
	homeService, err := home.NewService(home.ServiceConfig{
		Database: db,
		Posts:    postService,
		Projects: projectService,
		Cache:    cache.Nop{},
		Clock:    clock,
		Logger:   logger,
	})
	if err != nil {
		testContext.Fatalf("home service: %v", err)
	}

	dispatcher := NewRealtimeDispatcher()
	publishers := reactions.Publishers{dispatcher, homeService}
	postReactions, err := reactions.NewService(reactions.ServiceConfig{
		Kind: subject.KindPost, Store: postStore, Subjects: postService, Publisher: publishers, Clock: clock, Logger: logger,
	})
	if err != nil {
		testContext.Fatalf("post reactions: %v", err)
	}
	projectReactions, err := reactions.NewService(reactions.ServiceConfig{
		Kind: subject.KindProject, Store: projectStore, Subjects: projectService, Publisher: publishers, Clock: clock, Logger: logger,
	})
	if err != nil {
		testContext.Fatalf("project reactions: %v", err)
	}

	accountService, err := accounts.NewService(accounts.ServiceConfig{Database: db, BcryptCost: bcrypt.MinCost})
	if err != nil {
		testContext.Fatalf("accounts service: %v", err)
	}
	if _, err := accountService.EnsureAccount(ctx, testAdminUsername, testAdminPassword); err != nil {
		testContext.Fatalf("ensure admin: %v", err)
	}
	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("server-test-secret"),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      time.Hour,
	})
	if err != nil {
		testContext.Fatalf("token issuer: %v", err)
	}
	adminToken, _, err := tokenIssuer.IssueToken(ctx, testAdminUsername)
	if err != nil {
		testContext.Fatalf("issue admin token: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		TokenManager:     tokenIssuer,
		Authenticator:    accountService,
		PostsService:     postService,
		ProjectsService:  projectService,
		PostReactions:    postReactions,
		ProjectReactions: projectReactions,
		TagsService:      tagService,
		ProfileService:   profileService,
		HomeService:      homeService,
		Identity:         identity,
		Realtime:         dispatcher,
		AllowedOrigins:   []string{"*"},
		MediaRoot:        testContext.TempDir(),
		MediaURLPrefix:   "/media/",
		Logger:           logger,
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	return &testApp{
		handler:      handler,
		db:           db,
		posts:        postService,
		projects:     projectService,
		postStore:    postStore,
		projectStore: projectStore,
		realtime:     dispatcher,
		tokens:       tokenIssuer,
		adminToken:   adminToken,
	}
}

type requestOption func(*http.Request)

func fromAddress(remoteAddr string) requestOption {
	return func(request *http.Request) {
		request.RemoteAddr = remoteAddr
	}
}

func withHeader(name, value string) requestOption {
	return func(request *http.Request) {
		request.Header.Set(name, value)
	}
}

func (a *testApp) asAdmin() requestOption {
	return withHeader("Authorization", "Bearer "+a.adminToken)
}

func (a *testApp) do(testContext *testing.T, method, target string, body interface{}, options ...requestOption) *httptest.ResponseRecorder {
	testContext.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			testContext.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, target, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, option := range options {
		option(request)
	}
	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, request)
	return recorder
}

func (a *testApp) mustCreatePost(testContext *testing.T, title string) posts.Detail {
	testContext.Helper()
	detail, err := a.posts.Create(context.Background(), posts.Input{Title: title, Content: "content of " + title})
	if err != nil {
		testContext.Fatalf("failed to create post: %v", err)
	}
	return detail
}

func (a *testApp) mustCreateProject(testContext *testing.T, title string) projects.Detail {
	testContext.Helper()
	detail, err := a.projects.Create(context.Background(), testAdminUsername, projects.Input{Title: title, Description: "about " + title})
	if err != nil {
		testContext.Fatalf("failed to create project: %v", err)
	}
	return detail
}

func decodeBody(testContext *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	testContext.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		testContext.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}
