package handler

import (
	"net/http"

	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/service"
	"anoa.com/certhub/pkg/response"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) List(c *gin.Context) {
	role := model.UserRole(c.Query("role"))

	users, err := h.userService.ListUsers(c.Request.Context(), role)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}
