package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jasurdev/portfolio-api/internal/profile"
)

type aboutMePayload struct {
	IntroText    *string `json:"intro_text"`
	Resume       *string `json:"resume" binding:"omitempty,max=500"`
	ProfileImage *string `json:"profile_image" binding:"omitempty,max=500"`
}

type skillPayload struct {
	Name            string  `json:"name" binding:"required,max=100"`
	Image           string  `json:"image" binding:"max=500"`
	ExperienceYears float64 `json:"experience_years" binding:"gte=0,lte=999.9"`
	Proficiency     int     `json:"proficiency" binding:"gte=0,lte=100"`
}

type experiencePayload struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Company     string  `json:"company" binding:"required,max=200"`
	Description string  `json:"description"`
	StartYear   int     `json:"start_year" binding:"required,year"`
	EndYear     *int    `json:"end_year" binding:"omitempty,year"`
	Link        *string `json:"link" binding:"omitempty,max=500,httpurl_or_empty"`
}

type certificatePayload struct {
	Title        string  `json:"title" binding:"required,max=200"`
	Description  string  `json:"description"`
	Image        string  `json:"image" binding:"max=500"`
	Link         *string `json:"link" binding:"omitempty,max=500,httpurl_or_empty"`
	ObtainedYear *int    `json:"obtained_year" binding:"omitempty,year"`
}

func (h *httpHandler) handleGetAboutMe(c *gin.Context) {
	about, err := h.profile.AboutMe(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.newAboutMeView(c, about))
}

func (h *httpHandler) handleUpdateAboutMe(c *gin.Context) {
	var payload aboutMePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	about, err := h.profile.UpdateAboutMe(c.Request.Context(), profile.AboutMeInput{
		IntroText:    payload.IntroText,
		Resume:       payload.Resume,
		ProfileImage: payload.ProfileImage,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.newAboutMeView(c, about))
}

func (h *httpHandler) handleListSkills(c *gin.Context) {
	skills, err := h.profile.Skills(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]skillView, 0, len(skills))
	for _, skill := range skills {
		views = append(views, h.newSkillView(c, skill))
	}
	c.JSON(http.StatusOK, views)
}

func (h *httpHandler) handleCreateSkill(c *gin.Context) {
	var payload skillPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	skill, err := h.profile.CreateSkill(c.Request.Context(), payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.newSkillView(c, skill))
}

func (h *httpHandler) handleUpdateSkill(c *gin.Context) {
	id, ok := parseNumericID(c)
	if !ok {
		return
	}
	var payload skillPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	skill, err := h.profile.UpdateSkill(c.Request.Context(), id, payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.newSkillView(c, skill))
}

func (h *httpHandler) handleDeleteSkill(c *gin.Context) {
	id, ok := parseNumericID(c)
	if !ok {
		return
	}
	if err := h.profile.DeleteSkill(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (p skillPayload) input() profile.SkillInput {
	return profile.SkillInput{
		Name:            p.Name,
		Image:           p.Image,
		ExperienceYears: p.ExperienceYears,
		Proficiency:     p.Proficiency,
	}
}

func (h *httpHandler) handleListExperiences(c *gin.Context) {
	experiences, err := h.profile.Experiences(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]experienceView, 0, len(experiences))
	for _, experience := range experiences {
		views = append(views, newExperienceView(experience))
	}
	c.JSON(http.StatusOK, views)
}

func (h *httpHandler) handleGetExperience(c *gin.Context) {
	id, ok := parseNumericID(c)
	if !ok {
		return
	}
	experience, err := h.profile.Experience(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newExperienceView(experience))
}

func (h *httpHandler) handleCreateExperience(c *gin.Context) {
	var payload experiencePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	experience, err := h.profile.CreateExperience(c.Request.Context(), payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newExperienceView(experience))
}

func (h *httpHandler) handleUpdateExperience(c *gin.Context) {
	id, ok := parseNumericID(c)
	if !ok {
		return
	}
	var payload experiencePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	experience, err := h.profile.UpdateExperience(c.Request.Context(), id, payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newExperienceView(experience))
}

func (h *httpHandler) handleDeleteExperience(c *gin.Context) {
	id, ok := parseNumericID(c)
	if !ok {
		return
	}
	if err := h.profile.DeleteExperience(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (p experiencePayload) input() profile.ExperienceInput {
	return profile.ExperienceInput{
		Title:       p.Title,
		Company:     p.Company,
		Description: p.Description,
		StartYear:   p.StartYear,
		EndYear:     p.EndYear,
		Link:        p.Link,
	}
}

func (h *httpHandler) handleListCertificates(c *gin.Context) {
	certificates, err := h.profile.Certificates(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]certificateView, 0, len(certificates))
	for _, certificate := range certificates {
		views = append(views, h.newCertificateView(c, certificate))
	}
	c.JSON(http.StatusOK, views)
}

func (h *httpHandler) handleGetCertificate(c *gin.Context) {
	id, ok := parseNumericID(c)
	if !ok {
		return
	}
	certificate, err := h.profile.Certificate(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.newCertificateView(c, certificate))
}

func (h *httpHandler) handleCreateCertificate(c *gin.Context) {
	var payload certificatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	certificate, err := h.profile.CreateCertificate(c.Request.Context(), payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.newCertificateView(c, certificate))
}

func (h *httpHandler) handleUpdateCertificate(c *gin.Context) {
	id, ok := parseNumericID(c)
	if !ok {
		return
	}
	var payload certificatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	certificate, err := h.profile.UpdateCertificate(c.Request.Context(), id, payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.newCertificateView(c, certificate))
}

func (h *httpHandler) handleDeleteCertificate(c *gin.Context) {
	id, ok := parseNumericID(c)
	if !ok {
		return
	}
	if err := h.profile.DeleteCertificate(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (p certificatePayload) input() profile.CertificateInput {
	return profile.CertificateInput{
		Title:        p.Title,
		Description:  p.Description,
		Image:        p.Image,
		Link:         p.Link,
		ObtainedYear: p.ObtainedYear,
	}
}
