package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// PageRequest is the page window parsed from a list endpoint's query string
type PageRequest struct {
	Page  int
	Limit int
}

// ParsePageRequest reads page/limit query parameters, clamping the limit
// between 1 and maxLimit and falling back to defaultLimit
func ParsePageRequest(c *gin.Context, defaultLimit, maxLimit int) PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return PageRequest{Page: page, Limit: limit}
}

// PageInfo describes the window a list response covers
type PageInfo struct {
	TotalItems int `json:"total_items"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	PerPage    int `json:"per_page"`
}

// Info builds the metadata for a response covering totalItems rows
func (p PageRequest) Info(totalItems int) PageInfo {
	totalPages := (totalItems + p.Limit - 1) / p.Limit
	if totalPages == 0 {
		totalPages = 1
	}
	return PageInfo{
		TotalItems: totalItems,
		Page:       p.Page,
		TotalPages: totalPages,
		PerPage:    p.Limit,
	}
}

// SendPage writes a list response with its page metadata
func SendPage(c *gin.Context, statusCode int, data interface{}, totalItems int, req PageRequest) {
	c.JSON(statusCode, gin.H{
		"data":      data,
		"page_info": req.Info(totalItems),
	})
}

// SendError writes a standard error response
func SendError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}
