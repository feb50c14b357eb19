package handler

import (
	"net/http"

	"anoa.com/certhub/internal/service"
	"anoa.com/certhub/pkg/response"
	"github.com/gin-gonic/gin"
)

type PlatformHandler struct {
	platformService service.PlatformService
}

func NewPlatformHandler(platformService service.PlatformService) *PlatformHandler {
	return &PlatformHandler{
		platformService: platformService,
	}
}

func (h *PlatformHandler) List(c *gin.Context) {
	platforms, err := h.platformService.List(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": platforms})
}

func (h *PlatformHandler) Create(c *gin.Context) {
	var input service.CreatePlatformInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	platform, err := h.platformService.Create(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, platform)
}
