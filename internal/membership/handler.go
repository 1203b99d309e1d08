package membership

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

type RegisterRequest struct {
	ServiceID string `json:"service_id" validate:"required"`
	// Optional; a UUID is generated when empty.
	MemberID string `json:"member_id" validate:"omitempty,max=64"`
}

type ActivateRequest struct {
	// Blank or unparseable means today.
	StartDate string `json:"start_date"`
}

type FreezeRequest struct {
	DurationDays int `json:"duration_days" validate:"required,gte=1,lte=365"`
}

// @Summary      Register member
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RegisterRequest true "Plan"
// @Success      201 {object} Member
// @Failure      400,404,409 {object} api.ErrorResponse
// @Router       /admin/members [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !api.BindJSON(c, &req) {
		return
	}
	m, err := h.service.Register(c.Request.Context(), req.ServiceID, req.MemberID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// @Summary      List members
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Filter by status"
// @Success      200 {array} MemberView
// @Router       /admin/members [get]
func (h *Handler) List(c *gin.Context) {
	members, err := h.service.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) Get(c *gin.Context) {
	h.get(c, c.Param("memberID"))
}

// @Summary      Current member
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MemberView
// @Router       /me [get]
func (h *Handler) Me(c *gin.Context) {
	id, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	h.get(c, id)
}

func (h *Handler) get(c *gin.Context, id string) {
	v, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Activate membership
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        memberID path string true "Member ID"
// @Param        request body ActivateRequest false "Start date"
// @Success      200 {object} Member
// @Failure      404,409 {object} api.ErrorResponse
// @Router       /admin/members/{memberID}/activate [post]
func (h *Handler) Activate(c *gin.Context) {
	var req ActivateRequest
	if !api.BindJSON(c, &req) {
		return
	}
	m, err := h.service.Activate(c.Request.Context(), c.Param("memberID"), req.StartDate)
	h.respond(c, m, err)
}

func (h *Handler) Deactivate(c *gin.Context) {
	m, err := h.service.Deactivate(c.Request.Context(), c.Param("memberID"))
	h.respond(c, m, err)
}

// @Summary      Freeze membership
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        memberID path string true "Member ID"
// @Param        request body FreezeRequest true "Duration"
// @Success      200 {object} Member
// @Failure      400,404,409 {object} api.ErrorResponse
// @Router       /admin/members/{memberID}/freeze [post]
func (h *Handler) Freeze(c *gin.Context) {
	var req FreezeRequest
	if !api.BindJSON(c, &req) {
		return
	}
	m, err := h.service.Freeze(c.Request.Context(), c.Param("memberID"), req.DurationDays)
	h.respond(c, m, err)
}

func (h *Handler) Unfreeze(c *gin.Context) {
	m, err := h.service.Unfreeze(c.Request.Context(), c.Param("memberID"))
	h.respond(c, m, err)
}

func (h *Handler) MarkDormant(c *gin.Context) {
	m, err := h.service.MarkDormant(c.Request.Context(), c.Param("memberID"))
	h.respond(c, m, err)
}

func (h *Handler) History(c *gin.Context) {
	events, err := h.service.History(c.Request.Context(), c.Param("memberID"))
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// @Summary      Frozen members past their freeze window
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        as_of query string false "YYYY-MM-DD, defaults to today"
// @Success      200 {array} MemberView
// @Router       /admin/freezes/overdue [get]
func (h *Handler) OverdueFreezes(c *gin.Context) {
	members, err := h.service.OverdueFreezes(c.Request.Context(), c.Query("as_of"))
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) respond(c *gin.Context, m *Member, err error) {
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
