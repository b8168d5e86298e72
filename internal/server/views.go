package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jasurdev/portfolio-api/internal/comments"
	"github.com/jasurdev/portfolio-api/internal/home"
	"github.com/jasurdev/portfolio-api/internal/posts"
	"github.com/jasurdev/portfolio-api/internal/profile"
	"github.com/jasurdev/portfolio-api/internal/projects"
	"github.com/jasurdev/portfolio-api/internal/tags"
)

type commentView struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type postView struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	Image         *string       `json:"image"`
	Tags          []tags.Tag    `json:"tags"`
	LikesCount    int64         `json:"likes_count"`
	CommentsCount int           `json:"comments_count"`
	Comments      []commentView `json:"comments"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type projectView struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Image         *string       `json:"image"`
	GithubLink    *string       `json:"github_link"`
	LiveDemoLink  *string       `json:"live_demo_link"`
	Owner         string        `json:"owner"`
	Tags          []tags.Tag    `json:"tags"`
	LikesCount    int64         `json:"likes_count"`
	CommentsCount int           `json:"comments_count"`
	Comments      []commentView `json:"comments"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type aboutMeView struct {
	ID              uint64    `json:"id"`
	IntroText       string    `json:"intro_text"`
	ProfileImageURL *string   `json:"profile_image_url"`
	ResumeURL       *string   `json:"resume_url"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type skillView struct {
	ID              uint64  `json:"id"`
	Name            string  `json:"name"`
	Image           *string `json:"image"`
	ExperienceYears float64 `json:"experience_years"`
	Proficiency     uint8   `json:"proficiency"`
}

type experienceView struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Company     string  `json:"company"`
	Description string  `json:"description"`
	StartYear   int     `json:"start_year"`
	EndYear     *int    `json:"end_year"`
	Period      string  `json:"period"`
	Link        *string `json:"link"`
}

type certificateView struct {
	ID           uint64  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Image        *string `json:"image"`
	Link         *string `json:"link"`
	ObtainedYear *int    `json:"obtained_year"`
}

type homeContentView struct {
	ID        uint64    `json:"id"`
	HeroImage *string   `json:"hero_image"`
	HeroText  *string   `json:"hero_text"`
	UpdatedAt time.Time `json:"updated_at"`
}

type homeView struct {
	Home         *homeContentView `json:"home"`
	LastPosts    []postView       `json:"last_posts"`
	LastProjects []projectView    `json:"last_projects"`
}

func (h *httpHandler) newPostView(c *gin.Context, detail posts.Detail) postView {
	return postView{
		ID:            detail.ID,
		Title:         detail.Title,
		Content:       detail.Content,
		Image:         h.absoluteURL(c, detail.Image),
		Tags:          nonNilTags(detail.Tags),
		LikesCount:    detail.LikesCount,
		CommentsCount: len(detail.Comments),
		Comments:      newCommentViews(detail.Comments),
		CreatedAt:     detail.CreatedAt,
		UpdatedAt:     detail.UpdatedAt,
	}
}

func (h *httpHandler) newProjectView(c *gin.Context, detail projects.Detail) projectView {
	return projectView{
		ID:            detail.ID,
		Title:         detail.Title,
		Description:   detail.Description,
		Image:         h.absoluteURL(c, detail.Image),
		GithubLink:    detail.GithubLink,
		LiveDemoLink:  detail.LiveDemoLink,
		Owner:         detail.Owner,
		Tags:          nonNilTags(detail.Tags),
		LikesCount:    detail.LikesCount,
		CommentsCount: len(detail.Comments),
		Comments:      newCommentViews(detail.Comments),
		CreatedAt:     detail.CreatedAt,
		UpdatedAt:     detail.UpdatedAt,
	}
}

func (h *httpHandler) newAboutMeView(c *gin.Context, about profile.AboutMe) aboutMeView {
	return aboutMeView{
		ID:              about.ID,
		IntroText:       about.IntroText,
		ProfileImageURL: h.absoluteURL(c, about.ProfileImage),
		ResumeURL:       h.absoluteURL(c, about.Resume),
		UpdatedAt:       about.UpdatedAt,
	}
}

func (h *httpHandler) newSkillView(c *gin.Context, skill profile.Skill) skillView {
	return skillView{
		ID:              skill.ID,
		Name:            skill.Name,
		Image:           h.absoluteURL(c, skill.Image),
		ExperienceYears: skill.ExperienceYears,
		Proficiency:     skill.Proficiency,
	}
}

func newExperienceView(experience profile.Experience) experienceView {
	return experienceView{
		ID:          experience.ID,
		Title:       experience.Title,
		Company:     experience.Company,
		Description: experience.Description,
		StartYear:   experience.StartYear,
		EndYear:     experience.EndYear,
		Period:      experience.Period(),
		Link:        experience.Link,
	}
}

func (h *httpHandler) newCertificateView(c *gin.Context, certificate profile.Certificate) certificateView {
	return certificateView{
		ID:           certificate.ID,
		Title:        certificate.Title,
		Description:  certificate.Description,
		Image:        h.absoluteURL(c, certificate.Image),
		Link:         certificate.Link,
		ObtainedYear: certificate.ObtainedYear,
	}
}

func (h *httpHandler) newHomeView(c *gin.Context, snapshot home.Snapshot) homeView {
	view := homeView{
		LastPosts:    make([]postView, 0, len(snapshot.LastPosts)),
		LastProjects: make([]projectView, 0, len(snapshot.LastProjects)),
	}
	if snapshot.Home != nil {
		view.Home = &homeContentView{
			ID:        snapshot.Home.ID,
			HeroImage: h.absoluteURL(c, snapshot.Home.HeroImage),
			HeroText:  snapshot.Home.HeroText,
			UpdatedAt: snapshot.Home.UpdatedAt,
		}
	}
	for _, detail := range snapshot.LastPosts {
		view.LastPosts = append(view.LastPosts, h.newPostView(c, detail))
	}
	for _, detail := range snapshot.LastProjects {
		view.LastProjects = append(view.LastProjects, h.newProjectView(c, detail))
	}
	return view
}

func newCommentViews(items []comments.Comment) []commentView {
	views := make([]commentView, 0, len(items))
	for _, item := range items {
		views = append(views, newCommentView(item))
	}
	return views
}

func newCommentView(item comments.Comment) commentView {
	return commentView{ID: item.ID, Content: item.Content, CreatedAt: item.CreatedAt}
}

func nonNilTags(items []tags.Tag) []tags.Tag {
	if items == nil {
		return []tags.Tag{}
	}
	return items
}

// absoluteURL renders a stored media reference as a URL on the requesting host.
// Values that already carry a scheme are returned untouched; empty values render as null.
func (h *httpHandler) absoluteURL(c *gin.Context, stored string) *string {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return nil
	}
	if strings.HasPrefix(stored, "http://") || strings.HasPrefix(stored, "https://") {
		return &stored
	}

	relative := strings.TrimPrefix(stored, "/")
	if trimmedPrefix := strings.TrimPrefix(h.mediaPrefix, "/"); !strings.HasPrefix(relative, trimmedPrefix) {
		relative = trimmedPrefix + relative
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.ToLower(strings.TrimSpace(forwarded))
	}
	url := scheme + "://" + c.Request.Host + "/" + relative
	return &url
}
