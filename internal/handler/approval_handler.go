package handler

import (
	"net/http"

	"retail-backend/internal/middleware"
	"retail-backend/internal/model"
	"retail-backend/internal/service"
	"retail-backend/pkg/pagination"
	"retail-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	{
		approvals.GET("", h.ListApprovalRequests)
		approvals.POST("", h.CreateApprovalRequest)
		approvals.POST("/:id/approve", middleware.RequireRole(model.RoleOwner), h.ApproveRequest)
		approvals.POST("/:id/reject", middleware.RequireRole(model.RoleOwner), h.RejectRequest)
	}
}

// CreateApprovalRequest godoc
// @Summary      Request stock adjustment
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateApprovalRequestDTO  true  "Adjustment request"
// @Success      201      {object}  response.Response{data=service.ApprovalRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/approvals [post]
func (h *ApprovalHandler) CreateApprovalRequest(c *gin.Context) {
	var req service.CreateApprovalRequestDTO
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.approvalService.CreateApprovalRequest(c.Request.Context(), middleware.ScopeFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListApprovalRequests godoc
// @Summary      List approval requests
// @Description  Store managers only see their own store
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        status    query     string  false  "PENDING, APPROVED or REJECTED"
// @Param        store_id  query     string  false  "Store filter (owners)"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=response.Paged}
// @Router       /api/approvals [get]
func (h *ApprovalHandler) ListApprovalRequests(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.ApprovalFilter{
		Status:  c.Query("status"),
		StoreID: c.Query("store_id"),
		Page:    p.Page,
		Limit:   p.Limit,
	}

	approvals, total, err := h.approvalService.ListApprovalRequests(c.Request.Context(), middleware.ScopeFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paged{
		Items: approvals,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}

// ApproveRequest godoc
// @Summary      Approve request
// @Description  Approves a PENDING request and appends its stock adjustment. Owner only.
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true   "Approval request ID"
// @Param        payload  body      service.ReviewRequestDTO  false  "Notes"
// @Success      200      {object}  response.Response{data=service.ApprovalRequestResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/approve [post]
func (h *ApprovalHandler) ApproveRequest(c *gin.Context) {
	var req service.ReviewRequestDTO
	// The body is optional when approving.
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	result, err := h.approvalService.ApproveRequest(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RejectRequest godoc
// @Summary      Reject request
// @Description  Rejects a PENDING request. Notes are required. Owner only.
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Approval request ID"
// @Param        payload  body      service.ReviewRequestDTO  true  "Notes"
// @Success      200      {object}  response.Response{data=service.ApprovalRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/reject [post]
func (h *ApprovalHandler) RejectRequest(c *gin.Context) {
	var req service.ReviewRequestDTO
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.approvalService.RejectRequest(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
