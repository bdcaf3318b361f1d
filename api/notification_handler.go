package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"homeflow/notification"
)

// NotificationService is the slice of notification.Center the handler needs.
type NotificationService interface {
	MarkRead(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string, limit int) ([]notification.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// NotificationHandler serves a user's notification feed.
type NotificationHandler struct {
	Notifications NotificationService
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := CallerID(c)
	items, err := h.Notifications.ListForUser(c.Request.Context(), userID, 50)
	if err != nil {
		writeError(c, err)
		return
	}
	unread, err := h.Notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, n := range items {
		out = append(out, gin.H{
			"id":         n.ID,
			"type":       n.Type,
			"body":       n.Body,
			"context_id": n.ContextID,
			"is_read":    n.Read,
			"created_at": n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out, "unread_count": unread})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.Notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
