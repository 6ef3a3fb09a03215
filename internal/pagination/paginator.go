package pagination

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination holds pagination parameters and metadata
type Pagination struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Page   int   `json:"page"`
	Total  int64 `json:"total"`
}

// Parse reads query params `limit` and `page`, enforcing the max limit from
// env `MAX_LIMIT` (default 200). Aborts the request with 400 on bad input;
// callers must check ctx.IsAborted().
func Parse(c *gin.Context) Pagination {
	defaultLimit := 50
	maxLimit := 200

	if ml := os.Getenv("MAX_LIMIT"); ml != "" {
		if v, err := strconv.Atoi(ml); err == nil && v > 0 {
			maxLimit = v
		}
	}

	limit := defaultLimit
	if ls := c.Query("limit"); ls != "" {
		v, err := strconv.Atoi(ls)
		if err != nil || v <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return Pagination{}
		}
		limit = v
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	page := 1
	if ps := c.Query("page"); ps != "" {
		v, err := strconv.Atoi(ps)
		if err != nil || v <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
			return Pagination{}
		}
		page = v
	}

	return Pagination{
		Limit:  limit,
		Offset: (page - 1) * limit,
		Page:   page,
	}
}
