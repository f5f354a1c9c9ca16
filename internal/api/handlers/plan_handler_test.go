package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvalenciar/reorden-py/backend-go/internal/config"
	"github.com/dvalenciar/reorden-py/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryCSV = `bodega,producto,inventario_actual,stock_seguridad,lead_time
BOD1,SKU1,100,20,3
`

const forecastCSV = `fecha,bodega,producto,pronostico_ventas
2025-03-01,BOD1,SKU1,30
2025-03-02,BOD1,SKU1,30
2025-03-03,BOD1,SKU1,30
2025-03-04,BOD1,SKU1,30
2025-03-05,BOD1,SKU1,30
`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	planner := service.NewPlanner(config.PolicyConfig{
		NearWithinDays:           5,
		CarryUnmatchedDeliveries: true,
	}, nil, nil)
	h := NewPlanHandler(planner, t.TempDir())

	router := gin.New()
	plan := router.Group("/api/v1/plan")
	plan.POST("/dataset", h.UploadDataset)
	plan.GET("/catalog", h.GetCatalog)
	plan.GET("/projection", h.GetProjection)
	plan.GET("/summary", h.GetSummary)
	plan.GET("/series", h.GetSeries)
	plan.POST("/purchases", h.RegisterPurchase)
	plan.GET("/purchases", h.ListPurchases)
	plan.GET("/export", h.DownloadExport)
	plan.POST("/export/publish", h.PublishExport)
	return router
}

func datasetBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, content := range fields {
		part, err := writer.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func uploadDataset(t *testing.T, router *gin.Engine) {
	t.Helper()
	body, contentType := datasetBody(t, map[string]string{
		"inventario": inventoryCSV,
		"pronostico": forecastCSV,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan/dataset", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func doJSON(router *gin.Engine, method, path, payload string) *httptest.ResponseRecorder {
	var req *http.Request
	if payload == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadDataset(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := datasetBody(t, map[string]string{
		"inventario": inventoryCSV,
		"pronostico": forecastCSV,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan/dataset", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data service.DatasetStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.InventoryRecords)
	assert.Equal(t, 5, resp.Data.ForecastRecords)
	assert.Equal(t, 5, resp.Data.BaseRows)
}

func TestUploadDatasetMissingFile(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := datasetBody(t, map[string]string{
		"inventario": inventoryCSV,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan/dataset", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "pronostico")
}

func TestUploadDatasetBadSchema(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := datasetBody(t, map[string]string{
		"inventario": "bodega,producto\nBOD1,SKU1\n",
		"pronostico": forecastCSV,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan/dataset", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing required columns")
}

func TestEndpointsWithoutDataset(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/plan/catalog",
		"/api/v1/plan/projection",
		"/api/v1/plan/summary",
		"/api/v1/plan/series",
		"/api/v1/plan/purchases",
		"/api/v1/plan/export",
	} {
		w := doJSON(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusConflict, w.Code, path)
	}
}

func TestGetProjection(t *testing.T) {
	router := newTestRouter(t)
	uploadDataset(t, router)

	w := doJSON(router, http.MethodGet, "/api/v1/plan/projection?bodega=BOD1&producto=SKU1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Total)
}

func TestGetProjectionEmptyFilter(t *testing.T) {
	router := newTestRouter(t)
	uploadDataset(t, router)

	w := doJSON(router, http.MethodGet, "/api/v1/plan/projection?bodega=NOPE", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "warning")
}

func TestRegisterPurchase(t *testing.T) {
	router := newTestRouter(t)
	uploadDataset(t, router)

	w := doJSON(router, http.MethodPost, "/api/v1/plan/purchases",
		`{"bodega":"BOD1","producto":"SKU1","fecha_compra":"2025-03-01","cantidad":200}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"fecha_entrega":"2025-03-04T00:00:00Z"`)

	w = doJSON(router, http.MethodGet, "/api/v1/plan/purchases", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestRegisterPurchaseValidation(t *testing.T) {
	router := newTestRouter(t)
	uploadDataset(t, router)

	tests := []struct {
		name    string
		payload string
		status  int
	}{
		{
			name:    "zero quantity",
			payload: `{"bodega":"BOD1","producto":"SKU1","fecha_compra":"2025-03-01","cantidad":0}`,
			status:  http.StatusBadRequest,
		},
		{
			name:    "negative quantity",
			payload: `{"bodega":"BOD1","producto":"SKU1","fecha_compra":"2025-03-01","cantidad":-5}`,
			status:  http.StatusBadRequest,
		},
		{
			name:    "bad date",
			payload: `{"bodega":"BOD1","producto":"SKU1","fecha_compra":"03/01/2025","cantidad":10}`,
			status:  http.StatusBadRequest,
		},
		{
			name:    "missing product",
			payload: `{"bodega":"BOD1","fecha_compra":"2025-03-01","cantidad":10}`,
			status:  http.StatusBadRequest,
		},
		{
			name:    "unknown product",
			payload: `{"bodega":"BOD1","producto":"GHOST","fecha_compra":"2025-03-01","cantidad":10}`,
			status:  http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/v1/plan/purchases", tt.payload)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGetSummary(t *testing.T) {
	router := newTestRouter(t)
	uploadDataset(t, router)

	w := doJSON(router, http.MethodGet, "/api/v1/plan/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"estado"`)
	assert.Contains(t, w.Body.String(), `"fecha_siguiente_compra"`)
}

func TestGetSeries(t *testing.T) {
	router := newTestRouter(t)
	uploadDataset(t, router)

	w := doJSON(router, http.MethodGet, "/api/v1/plan/series?producto=SKU1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"puntos"`)
	assert.Contains(t, w.Body.String(), `"stock_seguridad":20`)
}

func TestDownloadExport(t *testing.T) {
	router := newTestRouter(t)
	uploadDataset(t, router)

	w := doJSON(router, http.MethodGet, "/api/v1/plan/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), service.ExportFilename)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestPublishExportWithoutStorage(t *testing.T) {
	router := newTestRouter(t)
	uploadDataset(t, router)

	w := doJSON(router, http.MethodPost, "/api/v1/plan/export/publish", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
