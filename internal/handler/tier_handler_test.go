package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ccswitch/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTierRouter(server *Server) *gin.Engine {
	engine := gin.New()
	engine.GET("/api/tiers", server.GetTiers)
	engine.PUT("/api/tiers", server.UpdateTiers)
	return engine
}

const validTierJSON = `{
	"providers": [
		{"name": "primary", "host": "api.anthropic.com", "auth_token": "sk-a"},
		{"name": "backup", "host": "open.bigmodel.cn"}
	],
	"tiers": {
		"opus": {
			"provider": "primary",
			"model": "claude-opus-4-5-20251101",
			"fallback": [{"provider": "backup", "model": "glm-4.6"}]
		}
	}
}`

func TestUpdateAndGetTiers(t *testing.T) {
	server := setupTestServer(t)
	engine := newTierRouter(server)

	req := httptest.NewRequest(http.MethodPut, "/api/tiers", strings.NewReader(validTierJSON))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/tiers", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Equal(t, "primary", gjson.Get(body, "data.file.tiers.opus.provider").String())
	assert.Equal(t, "glm-4.6", gjson.Get(body, "data.file.tiers.opus.fallback.0.model").String())
}

func TestUpdateTiersRejectsCycle(t *testing.T) {
	server := setupTestServer(t)
	engine := newTierRouter(server)

	cyclic := `{
		"providers": [
			{"name": "a", "host": "a.example.com"},
			{"name": "b", "host": "b.example.com"}
		],
		"tiers": {
			"opus": {
				"provider": "a", "model": "m",
				"fallback": [{"provider": "b", "model": "m", "fallback": [{"provider": "a", "model": "m"}]}]
			}
		}
	}`

	req := httptest.NewRequest(http.MethodPut, "/api/tiers", strings.NewReader(cyclic))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Equal(t, "VALIDATION_FAILED", gjson.Get(body, "code").String())
	assert.Contains(t, gjson.Get(body, "message").String(), "cyclic")

	// The store is untouched.
	file, err := server.TierStore.Get()
	require.NoError(t, err)
	assert.Empty(t, file.Tiers)
}

func TestUpdateTiersRejectsMalformedJSON(t *testing.T) {
	server := setupTestServer(t)
	engine := newTierRouter(server)

	req := httptest.NewRequest(http.MethodPut, "/api/tiers", strings.NewReader(`{"providers": [`))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_JSON", gjson.Get(w.Body.String(), "code").String())
}

func TestUpdateTiersReturnsWarnings(t *testing.T) {
	server := setupTestServer(t)
	engine := newTierRouter(server)

	file := &models.TierFile{
		Providers: []models.ProviderConfig{
			{Name: "p1", Host: "a.example.com"},
			{Name: "p2", Host: "b.example.com"},
			{Name: "p3", Host: "c.example.com"},
			{Name: "p4", Host: "d.example.com"},
			{Name: "p5", Host: "e.example.com"},
			{Name: "p6", Host: "f.example.com"},
		},
		Tiers: map[string]*models.TierConfig{
			"deep": {Provider: "p1", Model: "m", Fallback: []*models.TierConfig{
				{Provider: "p2", Model: "m", Fallback: []*models.TierConfig{
					{Provider: "p3", Model: "m", Fallback: []*models.TierConfig{
						{Provider: "p4", Model: "m", Fallback: []*models.TierConfig{
							{Provider: "p5", Model: "m", Fallback: []*models.TierConfig{
								{Provider: "p6", Model: "m"},
							}},
						}},
					}},
				}},
			}},
		},
	}
	payload, err := json.Marshal(file)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/tiers", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	warnings := gjson.Get(w.Body.String(), "data.warnings")
	require.True(t, warnings.Exists())
	assert.Contains(t, warnings.Array()[0].String(), "6 entries")
}
