package swagger_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apicontract "github.com/tuanvumaihuynh/stock-cart/api-contract"
	"github.com/tuanvumaihuynh/stock-cart/internal/http/swagger"
)

func TestSwaggerDocsRoute(t *testing.T) {
	r := chi.NewRouter()
	require.NoError(t, swagger.Register(r, apicontract.GetSpecBytes()))

	get := func(path string) *httptest.ResponseRecorder {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		return resp
	}

	t.Run("Should get docs successfully", func(t *testing.T) {
		resp := get("/docs")

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, resp.Body.String(), "<!DOCTYPE html>")
		assert.Contains(t, resp.Body.String(), "/docs/openapi.yml")
	})

	t.Run("Should get openapi.yml successfully", func(t *testing.T) {
		resp := get("/docs/openapi.yml")

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Header().Get("Content-Type"), "application/yaml")
		assert.Equal(t, apicontract.GetSpecBytes(), resp.Body.Bytes())
	})

	t.Run("Should get openapi.json successfully", func(t *testing.T) {
		resp := get("/docs/openapi.json")

		assert.Equal(t, http.StatusOK, resp.Code)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doc))
		assert.Contains(t, doc, "paths")
	})
}

func TestRegisterRejectsBrokenSpec(t *testing.T) {
	err := swagger.Register(chi.NewRouter(), []byte("openapi: [not yaml"))
	assert.Error(t, err)
}
