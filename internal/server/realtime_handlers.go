package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/subject"
	"go.uber.org/zap"
)

const realtimeEventConnected = "connected"

var realtimeHeartbeatInterval = 30 * time.Second

type realtimeConnectedPayload struct {
	Kind       subject.Kind `json:"kind"`
	SubjectID  string       `json:"subject_id"`
	LikesCount int64        `json:"likes_count"`
}

func (h *httpHandler) handleReactionStream(c *gin.Context) {
	if h.realtime == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime_disabled"})
		return
	}
	kind := subject.Kind(c.Query("kind"))
	subjectID := c.Query("id")
	if !kind.Valid() || subjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "kind and id are required"})
		return
	}

	service := h.reactionService(kind)
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, kind, subjectID)
	defer cleanup()

	count, err := h.subjectLikes(c, kind, service, subjectID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming_unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	if err := writeEvent(c, realtimeEventConnected, realtimeConnectedPayload{Kind: kind, SubjectID: subjectID, LikesCount: count}); err != nil {
		h.logger.Debug("realtime stream write failed", zap.Error(err))
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(realtimeHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-stream:
			if !open {
				return
			}
			if err := writeEvent(c, RealtimeEventReactionChanged, event); err != nil {
				h.logger.Debug("realtime stream write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", realtimeEventHeartbeat); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *httpHandler) reactionService(kind subject.Kind) *reactions.Service {
	if kind == subject.KindProject {
		return h.projectReactions
	}
	return h.postReactions
}

func (h *httpHandler) subjectLikes(c *gin.Context, kind subject.Kind, service *reactions.Service, subjectID string) (int64, error) {
	var finder subject.Finder = h.posts
	if kind == subject.KindProject {
		finder = h.projects
	}
	exists, err := finder.Exists(c.Request.Context(), subjectID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, reactions.ErrSubjectNotFound
	}
	return service.Count(c.Request.Context(), subjectID)
}

func writeEvent(c *gin.Context, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", eventType, data)
	return err
}
