package response

import (
	"log"
	"net/http"

	"anoa.com/certhub/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PrettyErrors controls whether raw internal error text is returned to
// clients. Hardened deployments set this to false at startup so 5xx
// responses carry a generic message and details stay in the server log.
var PrettyErrors = true

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code >= http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
		if !PrettyErrors {
			c.JSON(code, gin.H{"error": "an unexpected error occurred, please try again later"})
			return
		}
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
