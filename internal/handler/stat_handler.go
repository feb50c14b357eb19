package handler

import (
	"net/http"

	"anoa.com/certhub/internal/service"
	"anoa.com/certhub/pkg/response"
	"github.com/gin-gonic/gin"
)

type StatHandler struct {
	statService service.StatService
}

func NewStatHandler(statService service.StatService) *StatHandler {
	return &StatHandler{
		statService: statService,
	}
}

func (h *StatHandler) Dashboard(c *gin.Context) {
	stats, err := h.statService.Dashboard(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
