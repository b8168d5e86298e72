package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jasurdev/portfolio-api/internal/posts"
	"github.com/jasurdev/portfolio-api/internal/projects"
	"github.com/jasurdev/portfolio-api/internal/reactions"
)

type postPayload struct {
	Title   *string   `json:"title" binding:"omitempty,max=255"`
	Content *string   `json:"content"`
	Image   *string   `json:"image" binding:"omitempty,max=500"`
	Tags    *[]uint64 `json:"tags"`
}

func (p postPayload) patch() posts.Patch {
	return posts.Patch{Title: p.Title, Content: p.Content, Image: p.Image, TagIDs: p.Tags}
}

func (p postPayload) input() posts.Input {
	input := posts.Input{Title: deref(p.Title), Content: deref(p.Content), Image: deref(p.Image)}
	if p.Tags != nil {
		input.TagIDs = *p.Tags
	}
	return input
}

type projectPayload struct {
	Title        *string   `json:"title" binding:"omitempty,max=255"`
	Description  *string   `json:"description"`
	Image        *string   `json:"image" binding:"omitempty,max=500"`
	GithubLink   *string   `json:"github_link" binding:"omitempty,max=500,httpurl_or_empty"`
	LiveDemoLink *string   `json:"live_demo_link" binding:"omitempty,max=500,httpurl_or_empty"`
	Tags         *[]uint64 `json:"tags"`
}

func (p projectPayload) patch() projects.Patch {
	return projects.Patch{
		Title:        p.Title,
		Description:  p.Description,
		Image:        p.Image,
		GithubLink:   p.GithubLink,
		LiveDemoLink: p.LiveDemoLink,
		TagIDs:       p.Tags,
	}
}

func (p projectPayload) input() projects.Input {
	input := projects.Input{
		Title:        deref(p.Title),
		Description:  deref(p.Description),
		Image:        deref(p.Image),
		GithubLink:   p.GithubLink,
		LiveDemoLink: p.LiveDemoLink,
	}
	if p.Tags != nil {
		input.TagIDs = *p.Tags
	}
	return input
}

type commentPayload struct {
	Content string `json:"content" binding:"required,max=5000"`
}

func (h *httpHandler) handleListPosts(c *gin.Context) {
	details, err := h.posts.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]postView, 0, len(details))
	for _, detail := range details {
		views = append(views, h.newPostView(c, detail))
	}
	c.JSON(http.StatusOK, views)
}

func (h *httpHandler) handleGetPost(c *gin.Context) {
	detail, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.newPostView(c, detail))
}

func (h *httpHandler) handleCreatePost(c *gin.Context) {
	var payload postPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	detail, err := h.posts.Create(c.Request.Context(), payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateHome(c)
	c.JSON(http.StatusCreated, h.newPostView(c, detail))
}

func (h *httpHandler) handleUpdatePost(c *gin.Context) {
	h.writePost(c, true)
}

func (h *httpHandler) handlePatchPost(c *gin.Context) {
	h.writePost(c, false)
}

func (h *httpHandler) writePost(c *gin.Context, full bool) {
	var payload postPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	patch := payload.patch()
	if full {
		patch = payload.input().Full()
	}
	detail, err := h.posts.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateHome(c)
	c.JSON(http.StatusOK, h.newPostView(c, detail))
}

func (h *httpHandler) handleDeletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateHome(c)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddPostComment(c *gin.Context) {
	var payload commentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	comment, err := h.posts.AddComment(c.Request.Context(), c.Param("id"), payload.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateHome(c)
	c.JSON(http.StatusCreated, newCommentView(comment))
}

func (h *httpHandler) handleTogglePostLike(c *gin.Context) {
	h.toggleLike(c, h.postReactions)
}

func (h *httpHandler) handleListProjects(c *gin.Context) {
	details, err := h.projects.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]projectView, 0, len(details))
	for _, detail := range details {
		views = append(views, h.newProjectView(c, detail))
	}
	c.JSON(http.StatusOK, views)
}

func (h *httpHandler) handleGetProject(c *gin.Context) {
	detail, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.newProjectView(c, detail))
}

func (h *httpHandler) handleCreateProject(c *gin.Context) {
	var payload projectPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	detail, err := h.projects.Create(c.Request.Context(), c.GetString(adminContextKey), payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateHome(c)
	c.JSON(http.StatusCreated, h.newProjectView(c, detail))
}

func (h *httpHandler) handleUpdateProject(c *gin.Context) {
	h.writeProject(c, true)
}

func (h *httpHandler) handlePatchProject(c *gin.Context) {
	h.writeProject(c, false)
}

func (h *httpHandler) writeProject(c *gin.Context, full bool) {
	var payload projectPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	patch := payload.patch()
	if full {
		patch = payload.input().Full()
	}
	detail, err := h.projects.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateHome(c)
	c.JSON(http.StatusOK, h.newProjectView(c, detail))
}

func (h *httpHandler) handleDeleteProject(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateHome(c)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddProjectComment(c *gin.Context) {
	var payload commentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	comment, err := h.projects.AddComment(c.Request.Context(), c.Param("id"), payload.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateHome(c)
	c.JSON(http.StatusCreated, newCommentView(comment))
}

func (h *httpHandler) handleToggleProjectLike(c *gin.Context) {
	h.toggleLike(c, h.projectReactions)
}

// toggleLike is anonymous: the caller is identified only by its network address.
func (h *httpHandler) toggleLike(c *gin.Context, service *reactions.Service) {
	identity := h.identity.Resolve(c.Request)
	outcome, err := service.Toggle(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": outcome.Detail()})
}

func (h *httpHandler) invalidateHome(c *gin.Context) {
	if h.home != nil {
		h.home.Invalidate(c.Request.Context())
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
