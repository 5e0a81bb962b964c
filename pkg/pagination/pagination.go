package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1

	// SyncLimit is both the default and the ceiling of a change feed page.
	SyncLimit = 100
)

// Params holds validated pagination parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse extracts and validates page/limit from query parameters
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// ParseSyncLimit reads ?limit= for change feeds.
func ParseSyncLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return ClampSyncLimit(limit)
}

// ClampSyncLimit maps missing or out-of-range limits onto (0, SyncLimit].
func ClampSyncLimit(limit int) int {
	if limit < MinLimit || limit > SyncLimit {
		return SyncLimit
	}
	return limit
}
