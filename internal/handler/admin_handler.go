package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"anoa.com/certhub/internal/middleware"
	"anoa.com/certhub/internal/service"
	"anoa.com/certhub/pkg/apperror"
	"anoa.com/certhub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImportFileSize = 5 << 20

type AdminHandler struct {
	auditService  service.AuditService
	userService   service.UserService
	importService service.ImportService
}

func NewAdminHandler(auditService service.AuditService, userService service.UserService, importService service.ImportService) *AdminHandler {
	return &AdminHandler{
		auditService:  auditService,
		userService:   userService,
		importService: importService,
	}
}

// Logs returns the newest audit entries. Pass before=<RFC3339> to page
// backwards through older history.
func (h *AdminHandler) Logs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	if beforeStr := c.Query("before"); beforeStr != "" {
		before, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC3339 timestamp"})
			return
		}

		entries, err := h.auditService.ListBefore(c.Request.Context(), before, limit)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": entries})
		return
	}

	entries, err := h.auditService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), targetID, actor); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *AdminHandler) ImportStudents(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "import file is required"})
		return
	}
	if fileHeader.Size > maxImportFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "import file exceeds 5MB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read import file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportFileSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read import file"})
		return
	}

	result, err := h.importService.ImportStudents(c.Request.Context(), fileHeader.Filename, data, actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
