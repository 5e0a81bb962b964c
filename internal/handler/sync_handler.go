package handler

import (
	"net/http"

	"retail-backend/internal/middleware"
	"retail-backend/internal/service"
	"retail-backend/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	syncService service.SyncService
}

func NewSyncHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// RegisterRoutes mounts push and pull. Their success bodies are the bare sync
// payloads terminals read; errors keep the usual envelope.
func (h *SyncHandler) RegisterRoutes(router *gin.RouterGroup) {
	sync := router.Group("/api/sync")
	{
		sync.POST("/push", h.Push)
		sync.GET("/pull", h.Pull)
	}
}

// Push godoc
// @Summary      Push offline records
// @Description  Merges customers, sales, stock events and payments recorded offline. Records are applied one by one; a failing record does not abort the batch.
// @Tags         sync
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PushRequest  true  "Offline batch"
// @Success      200      {object}  service.PushResponse
// @Failure      400      {object}  response.Response
// @Router       /api/sync/push [post]
func (h *SyncHandler) Push(c *gin.Context) {
	var req service.PushRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.syncService.Push(c.Request.Context(), middleware.ScopeFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Pull godoc
// @Summary      Pull server changes
// @Description  Returns records changed after since, up to limit per entity. Follow next_cursor while has_more is true.
// @Tags         sync
// @Security     BearerAuth
// @Produce      json
// @Param        since   query     string  false  "RFC 3339 watermark from a previous pull"
// @Param        cursor  query     string  false  "Continuation token"
// @Param        limit   query     int     false  "Rows per entity (default and max 100)"
// @Success      200     {object}  service.PullResponse
// @Failure      400     {object}  response.Response
// @Router       /api/sync/pull [get]
func (h *SyncHandler) Pull(c *gin.Context) {
	since, ok := parseTimeQuery(c, "since")
	if !ok {
		return
	}

	result, err := h.syncService.Pull(c.Request.Context(), middleware.ScopeFrom(c), service.PullRequest{
		Since:  since,
		Cursor: c.Query("cursor"),
		Limit:  pagination.ParseSyncLimit(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
