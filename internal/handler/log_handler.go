package handler

import (
	"strconv"

	app_errors "ccswitch/internal/errors"
	"ccswitch/internal/response"
	"ccswitch/internal/services"

	"github.com/gin-gonic/gin"
)

// GetLogs handles the GET /api/logs request with filtering and paging.
func (s *Server) GetLogs(c *gin.Context) {
	query := services.LogQuery{
		Tier:      c.Query("tier"),
		Provider:  c.Query("provider"),
		Model:     c.Query("model"),
		IsSuccess: c.Query("is_success"),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		query.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil {
		query.PageSize = pageSize
	}

	logPage, err := s.LogService.ListLogs(query)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, logPage)
}
