package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jasurdev/portfolio-api/internal/home"
)

type homePayload struct {
	HeroImage *string `json:"hero_image" binding:"omitempty,max=500"`
	HeroText  *string `json:"hero_text" binding:"omitempty,max=500"`
}

type tagPayload struct {
	Name string `json:"name" binding:"required,max=50"`
}

func (h *httpHandler) handleGetHome(c *gin.Context) {
	snapshot, err := h.home.Snapshot(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.newHomeView(c, snapshot))
}

func (h *httpHandler) handleUpdateHome(c *gin.Context) {
	var payload homePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	content, err := h.home.Upsert(c.Request.Context(), home.Input{
		HeroImage: payload.HeroImage,
		HeroText:  payload.HeroText,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, homeContentView{
		ID:        content.ID,
		HeroImage: h.absoluteURL(c, content.HeroImage),
		HeroText:  content.HeroText,
		UpdatedAt: content.UpdatedAt,
	})
}

func (h *httpHandler) handleListTags(c *gin.Context) {
	list, err := h.tags.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNilTags(list))
}

func (h *httpHandler) handleCreateTag(c *gin.Context) {
	var payload tagPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	tag, err := h.tags.Create(c.Request.Context(), payload.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}
