package handler

import (
	"io"
	"net/http"

	"anoa.com/certhub/internal/middleware"
	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/service"
	"anoa.com/certhub/pkg/apperror"
	"anoa.com/certhub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 10 MB, matching the original upload limit.
const maxCertificateFileSize = 10 << 20

type TransitionInput struct {
	Status  model.CertificateStatus `json:"status" binding:"required,oneof=VERIFIED REJECTED"`
	Remarks string                  `json:"remarks" binding:"omitempty,max=2000"`
}

type CertificateHandler struct {
	certService   service.CertificateService
	searchService service.SearchService
}

func NewCertificateHandler(certService service.CertificateService, searchService service.SearchService) *CertificateHandler {
	return &CertificateHandler{
		certService:   certService,
		searchService: searchService,
	}
}

func (h *CertificateHandler) Submit(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var input service.SubmitInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "certificate file is required"})
		return
	}
	if fileHeader.Size > maxCertificateFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "certificate file exceeds 10MB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read certificate file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxCertificateFileSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read certificate file"})
		return
	}

	cert, err := h.certService.Submit(c.Request.Context(), actor, input, &service.CertificateFile{
		Data:     data,
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cert)
}

func (h *CertificateHandler) List(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	status := model.CertificateStatus(c.Query("status"))

	certs, err := h.certService.ListForActor(c.Request.Context(), actor, status)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": certs})
}

func (h *CertificateHandler) Transition(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	certID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}

	var input TransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	cert, err := h.certService.Transition(c.Request.Context(), certID, input.Status, actor, input.Remarks)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, cert)
}

func (h *CertificateHandler) Delete(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	certID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}

	if err := h.certService.Delete(c.Request.Context(), certID, actor); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "certificate deleted"})
}

func (h *CertificateHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	docs, err := h.searchService.Search(query, 20)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": docs})
}
