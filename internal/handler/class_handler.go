package handler

import (
	"net/http"

	"anoa.com/certhub/internal/middleware"
	"anoa.com/certhub/internal/service"
	"anoa.com/certhub/pkg/apperror"
	"anoa.com/certhub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ClassHandler struct {
	rosterService service.RosterService
}

func NewClassHandler(rosterService service.RosterService) *ClassHandler {
	return &ClassHandler{
		rosterService: rosterService,
	}
}

func (h *ClassHandler) CreateClass(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var input service.CreateClassInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	class, err := h.rosterService.CreateClass(c.Request.Context(), input, actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, class)
}

func (h *ClassHandler) ListClasses(c *gin.Context) {
	classes, err := h.rosterService.ListClasses(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": classes})
}

func (h *ClassHandler) Enroll(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid class id"})
		return
	}

	var input service.EnrollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	if err := h.rosterService.Enroll(c.Request.Context(), classID, input.StudentIDs, actor); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "students enrolled"})
}

func (h *ClassHandler) ClassStudents(c *gin.Context) {
	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid class id"})
		return
	}

	students, err := h.rosterService.ClassStudents(c.Request.Context(), classID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": students})
}
