package apihelpers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DEFAULT_PAGE_LIMIT = 10
	MAX_PAGE_LIMIT     = 100
)

type PaginatedQuery struct {
	Page  int64
	Limit int64
}

// Skip is the number of documents before the requested page.
func (q PaginatedQuery) Skip() int64 {
	return (q.Page - 1) * q.Limit
}

func ParsePaginatedQueryFromCtx(c *gin.Context, defaultLimit int64) (*PaginatedQuery, error) {
	if defaultLimit < 1 {
		defaultLimit = DEFAULT_PAGE_LIMIT
	}

	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil {
		return nil, BadRequest("invalid page")
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.FormatInt(defaultLimit, 10)), 10, 64)
	if err != nil {
		return nil, BadRequest("invalid limit")
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MAX_PAGE_LIMIT {
		limit = MAX_PAGE_LIMIT
	}
	// keeps Skip() from overflowing
	if maxPage := math.MaxInt64 / limit; page > maxPage {
		page = maxPage
	}

	return &PaginatedQuery{
		Page:  page,
		Limit: limit,
	}, nil
}
