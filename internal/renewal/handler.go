package renewal

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

type CreateRequest struct {
	ServiceID string `json:"service_id" validate:"required"`
}

type ApproveRequest struct {
	StartDate string `json:"start_date"`
}

type StatusResponse struct {
	Status Status `json:"status"`
}

// @Summary      Request renewal
// @Tags         renewals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Plan"
// @Success      201 {object} Request
// @Failure      404,409 {object} api.ErrorResponse
// @Router       /me/renewals [post]
func (h *Handler) Create(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	var body CreateRequest
	if !api.BindJSON(c, &body) {
		return
	}
	req, err := h.service.CreateRequest(c.Request.Context(), memberID, body.ServiceID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// @Summary      Renewal status
// @Tags         renewals
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} StatusResponse
// @Router       /me/renewal [get]
func (h *Handler) MyStatus(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	st, err := h.service.StatusFor(c.Request.Context(), memberID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: st})
}

func (h *Handler) List(c *gin.Context) {
	requests, err := h.service.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// @Summary      Approve renewal
// @Description  Activates the member on the requested plan.
// @Tags         renewals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        requestID path string true "Request ID"
// @Param        request body ApproveRequest false "Start date, defaults to today"
// @Success      200 {object} Request
// @Failure      404,409 {object} api.ErrorResponse
// @Router       /admin/renewals/{requestID}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	var body ApproveRequest
	if !api.BindJSON(c, &body) {
		return
	}
	h.resolve(c, StatusApproved, body.StartDate)
}

func (h *Handler) Reject(c *gin.Context) {
	h.resolve(c, StatusRejected, "")
}

func (h *Handler) resolve(c *gin.Context, outcome Status, startDate string) {
	req, err := h.service.Resolve(c.Request.Context(), c.Param("requestID"), outcome, startDate)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
