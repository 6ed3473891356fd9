package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success sends payload as the top-level JSON body; the front-end reads
// result fields directly, without an envelope
func Success(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
