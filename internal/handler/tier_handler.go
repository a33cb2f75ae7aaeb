package handler

import (
	app_errors "ccswitch/internal/errors"
	"ccswitch/internal/models"
	"ccswitch/internal/response"

	"github.com/gin-gonic/gin"
)

// TierFileResponse wraps the tier configuration plus any validation warnings
// produced when it was last saved.
type TierFileResponse struct {
	File     *models.TierFile `json:"file"`
	Warnings []string         `json:"warnings,omitempty"`
}

// GetTiers handles the GET /api/tiers request.
func (s *Server) GetTiers(c *gin.Context) {
	file, err := s.TierStore.Get()
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInternalServer, err.Error()))
		return
	}
	response.Success(c, TierFileResponse{File: file})
}

// UpdateTiers handles the PUT /api/tiers request. The whole tier file is
// replaced atomically; a config that fails validation (cycles, unknown
// providers, invalid hosts) is rejected without touching the stored one.
func (s *Server) UpdateTiers(c *gin.Context) {
	var file models.TierFile
	if err := c.ShouldBindJSON(&file); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	if file.Tiers == nil {
		file.Tiers = make(map[string]*models.TierConfig)
	}

	warnings, err := s.TierStore.Save(&file)
	if err != nil {
		response.Error(c, app_errors.NewValidationError(err.Error()))
		return
	}

	response.Success(c, TierFileResponse{File: &file, Warnings: warnings})
}
