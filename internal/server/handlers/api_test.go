package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/internal/apiroutes"
)

func TestAPIIndexListsRegisteredRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apiroutes.ClearForTesting()
	t.Cleanup(apiroutes.ClearForTesting)

	apiroutes.Register("/api/upload", "POST", "Upload a source video.")
	apiroutes.Register("/api/jobs", "GET", "List jobs.")

	r := gin.New()
	r.GET("/api/", APIIndex)

	req := httptest.NewRequest(http.MethodGet, "/api/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Service string              `json:"service"`
		Routes  []apiroutes.APIRoute `json:"routes"`
		Total   int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "clipforge", resp.Service)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "/api/upload", resp.Routes[0].Path)
}
