package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/apiroutes"
)

// APIIndex lists every registered endpoint with a short description.
func APIIndex(c *gin.Context) {
	routes := apiroutes.Get()
	c.JSON(http.StatusOK, gin.H{
		"service": "clipforge",
		"routes":  routes,
		"total":   len(routes),
	})
}
