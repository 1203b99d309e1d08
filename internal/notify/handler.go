package notify

import (
	"net/http"

	"shapeup/internal/api"
	"shapeup/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	inbox Inbox
	// Recipient id shared by all administrators.
	adminRecipient string
}

func NewHandler(inbox Inbox, adminRecipient string) *Handler {
	return &Handler{inbox: inbox, adminRecipient: adminRecipient}
}

// @Summary      My notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Notification
// @Router       /me/notifications [get]
func (h *Handler) Mine(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	h.list(c, memberID)
}

func (h *Handler) ForAdmins(c *gin.Context) {
	h.list(c, h.adminRecipient)
}

func (h *Handler) list(c *gin.Context, recipientID string) {
	notes, err := h.inbox.List(c.Request.Context(), recipientID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *Handler) MarkRead(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	h.markRead(c, memberID)
}

// MarkAdminRead marks an entry of the shared admin inbox as read.
func (h *Handler) MarkAdminRead(c *gin.Context) {
	h.markRead(c, h.adminRecipient)
}

func (h *Handler) markRead(c *gin.Context, recipientID string) {
	if err := h.inbox.MarkRead(c.Request.Context(), recipientID, c.Param("id")); err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "ok"})
}
