package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jasurdev/portfolio-api/internal/comments"
	"github.com/jasurdev/portfolio-api/internal/home"
	"github.com/jasurdev/portfolio-api/internal/posts"
	"github.com/jasurdev/portfolio-api/internal/profile"
	"github.com/jasurdev/portfolio-api/internal/projects"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/serviceerr"
	"github.com/jasurdev/portfolio-api/internal/tags"
	"go.uber.org/zap"
)

const notFoundDetail = "Not found."

// respondError maps service sentinels onto status codes; anything unknown is a 500.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, posts.ErrNotFound),
		errors.Is(err, projects.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, reactions.ErrSubjectNotFound),
		errors.Is(err, comments.ErrSubjectNotFound):
		respondNotFound(c)
	case errors.Is(err, posts.ErrInvalidInput),
		errors.Is(err, projects.ErrInvalidInput),
		errors.Is(err, profile.ErrInvalidInput),
		errors.Is(err, home.ErrInvalidInput),
		errors.Is(err, comments.ErrInvalidContent),
		errors.Is(err, tags.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": unwrapDetail(err)})
	case errors.Is(err, tags.ErrUnknownTag):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_tag", "detail": unwrapDetail(err)})
	case errors.Is(err, tags.ErrDuplicateTag):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_tag"})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", serviceerr.Code(err)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func respondNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": notFoundDetail})
}

func respondInvalid(c *gin.Context, err error) {
	body := gin.H{"error": "invalid_request"}
	if err != nil {
		body["detail"] = describeValidation(err)
	}
	c.JSON(http.StatusBadRequest, body)
}

// unwrapDetail strips the service code so clients see only the validation message.
func unwrapDetail(err error) string {
	var coded *serviceerr.Error
	if errors.As(err, &coded) {
		if cause := errors.Unwrap(coded); cause != nil {
			return cause.Error()
		}
	}
	return err.Error()
}

func parseNumericID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondNotFound(c)
		return 0, false
	}
	return id, true
}
