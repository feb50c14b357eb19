package handler

import (
	"net/http"

	"anoa.com/certhub/internal/service"
	"anoa.com/certhub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PublicHandler struct {
	certService service.CertificateService
	db          *gorm.DB
}

func NewPublicHandler(certService service.CertificateService, db *gorm.DB) *PublicHandler {
	return &PublicHandler{
		certService: certService,
		db:          db,
	}
}

func (h *PublicHandler) Health(c *gin.Context) {
	status := "ok"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "CertHub API is running",
		"status":  status,
	})
}

// Lookup serves the public verification link. Intentionally unauthenticated:
// a certificate id is treated as an unguessable bearer token.
func (h *PublicHandler) Lookup(c *gin.Context) {
	certID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}

	cert, err := h.certService.PublicLookup(c.Request.Context(), certID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, cert)
}
