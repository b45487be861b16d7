package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/app"
	"docchat/internal/storage"
	"docchat/internal/transport/http/response"
)

func newSessionRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	h := NewSessionHandler(app.NewSessionService(backend, nil, nil))

	router := gin.New()
	router.GET("/api/v1/sessions", h.List)
	router.POST("/api/v1/sessions", h.Create)
	router.DELETE("/api/v1/sessions/:id", h.Delete)
	return router
}

func doJSON(router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)

	var envelope response.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &envelope)
	return w, envelope
}

func TestSessionHandler_CreateAndList(t *testing.T) {
	router := newSessionRouter(t)

	w, envelope := doJSON(router, http.MethodPost, "/api/v1/sessions", `{"name":"research"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeOK, envelope.Code)

	w, envelope = doJSON(router, http.MethodGet, "/api/v1/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)

	sessions, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, sessions, 1)
	first, ok := sessions[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "research", first["name"])
}

func TestSessionHandler_CreateInvalidName(t *testing.T) {
	router := newSessionRouter(t)

	w, envelope := doJSON(router, http.MethodPost, "/api/v1/sessions", `{"name":"bad/name"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeInvalidName, envelope.Code)
}

func TestSessionHandler_CreateMissingName(t *testing.T) {
	router := newSessionRouter(t)

	w, envelope := doJSON(router, http.MethodPost, "/api/v1/sessions", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeBadRequest, envelope.Code)
}

func TestSessionHandler_CreateDuplicate(t *testing.T) {
	router := newSessionRouter(t)

	w, _ := doJSON(router, http.MethodPost, "/api/v1/sessions", `{"name":"Docs"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope := doJSON(router, http.MethodPost, "/api/v1/sessions", `{"name":"docs"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeDuplicateName, envelope.Code)
}

func TestSessionHandler_DeleteIdempotent(t *testing.T) {
	router := newSessionRouter(t)

	w, _ := doJSON(router, http.MethodPost, "/api/v1/sessions", `{"name":"temp"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope := doJSON(router, http.MethodDelete, "/api/v1/sessions/temp", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["deleted"])

	// Deleting again still reports success.
	w, _ = doJSON(router, http.MethodDelete, "/api/v1/sessions/temp", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
