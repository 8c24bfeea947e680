package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"partpay/financing-portal/financing-portal-backend/internal/notifications/websocket"
)

// Handler exposes the notification feed and the live event socket.
type Handler struct {
	service   *Service
	wsManager *websocket.Manager
	logger    *zap.Logger
}

func NewHandler(service *Service, wsManager *websocket.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		service:   service,
		wsManager: wsManager,
		logger:    logger,
	}
}

// RegisterRoutes registers notification endpoints on the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	notifications := rg.Group("/notifications")
	{
		notifications.GET("", h.listNotifications)
		notifications.GET("/unread-count", h.unreadCount)
		notifications.PUT("/:id/read", h.markAsRead)
	}
	rg.GET("/ws", h.handleWebSocket)
}

func (h *Handler) listNotifications(c *gin.Context) {
	recipientID, err := uuid.Parse(c.Query("recipient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient_id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	items, err := h.service.ListNotifications(c.Request.Context(), recipientID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": items, "count": len(items)})
}

func (h *Handler) unreadCount(c *gin.Context) {
	recipientID, err := uuid.Parse(c.Query("recipient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient_id"})
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), recipientID)
	if err != nil {
		h.logger.Error("failed to count notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *Handler) markAsRead(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), notificationID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *Handler) handleWebSocket(c *gin.Context) {
	authorityID := c.Query("authority_id")
	if authorityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authority_id is required"})
		return
	}

	if _, err := h.wsManager.HandleConnection(c.Writer, c.Request, authorityID); err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
	}
}
