package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// MaxLimit is the largest page size accepted by list endpoints.
const MaxLimit = 100

// ParsePagination parses the offset and limit query parameters. Offset defaults to 0 and
// limit to 50.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offsetStr := c.DefaultQuery("offset", "0")
	offset, err = strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	limit, err = ParseLimit(c, 50)
	if err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

// ParseLimit parses the limit query parameter, between 1 and MaxLimit.
func ParseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.DefaultQuery("limit", strconv.Itoa(defaultLimit))
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > MaxLimit {
		return 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", MaxLimit)
	}
	return limit, nil
}
