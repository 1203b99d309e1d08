package attendance

import (
	"net/http"

	"shapeup/internal/api"
	"shapeup/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type RecordRequest struct {
	// YYYY-MM-DD; blank means today.
	Date string `json:"date" validate:"omitempty,max=32"`
}

type EntriesResponse struct {
	Total   int     `json:"total"`
	Entries []Entry `json:"entries"`
}

// @Summary      Check in
// @Description  Records today's attendance for the authenticated member.
// @Tags         attendance
// @Produce      json
// @Security     BearerAuth
// @Success      201 {object} Receipt
// @Failure      409,422 {object} api.ErrorResponse
// @Router       /me/check-in [post]
func (h *Handler) CheckIn(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	h.record(c, memberID, "", ActorMember)
}

// @Summary      Record attendance
// @Tags         attendance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        memberID path string true "Member ID"
// @Param        request body RecordRequest false "Day"
// @Success      201 {object} Receipt
// @Failure      400,404,409,422 {object} api.ErrorResponse
// @Router       /admin/members/{memberID}/attendance [post]
func (h *Handler) Record(c *gin.Context) {
	var req RecordRequest
	if !api.BindJSON(c, &req) {
		return
	}
	h.record(c, c.Param("memberID"), req.Date, ActorAdmin)
}

func (h *Handler) record(c *gin.Context, memberID, date string, actor Actor) {
	receipt, err := h.service.Record(c.Request.Context(), memberID, date, actor)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (h *Handler) Entries(c *gin.Context) {
	ctx := c.Request.Context()
	memberID := c.Param("memberID")

	entries, err := h.service.Entries(ctx, memberID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	total, err := h.service.TotalFor(ctx, memberID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, EntriesResponse{Total: total, Entries: entries})
}

// @Summary      Rebuild attendance total from the ledger
// @Tags         attendance
// @Produce      json
// @Security     BearerAuth
// @Param        memberID path string true "Member ID"
// @Success      200 {object} membership.Member
// @Router       /admin/members/{memberID}/attendance/reconcile [post]
func (h *Handler) Reconcile(c *gin.Context) {
	m, err := h.service.Reconcile(c.Request.Context(), c.Param("memberID"))
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
