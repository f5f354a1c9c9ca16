package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
	"github.com/dvalenciar/reorden-py/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PlanHandler struct {
	planner   *service.Planner
	uploadDir string
}

func NewPlanHandler(planner *service.Planner, uploadDir string) *PlanHandler {
	return &PlanHandler{planner: planner, uploadDir: uploadDir}
}

// UploadDataset receives the inventory and forecast files as multipart
// form fields "inventario" and "pronostico", then loads them as the
// session dataset.
func (h *PlanHandler) UploadDataset(c *gin.Context) {
	inventoryFile, err := c.FormFile("inventario")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing inventario file"})
		return
	}
	forecastFile, err := c.FormFile("pronostico")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing pronostico file"})
		return
	}

	inventoryPath := filepath.Join(h.uploadDir, filepath.Base(inventoryFile.Filename))
	if err := c.SaveUploadedFile(inventoryFile, inventoryPath); err != nil {
		log.Error().Err(err).Str("filename", inventoryFile.Filename).Msg("failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store inventario file"})
		return
	}
	forecastPath := filepath.Join(h.uploadDir, filepath.Base(forecastFile.Filename))
	if err := c.SaveUploadedFile(forecastFile, forecastPath); err != nil {
		log.Error().Err(err).Str("filename", forecastFile.Filename).Msg("failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store pronostico file"})
		return
	}

	stats, err := h.planner.LoadDataset(c.Request.Context(), inventoryPath, forecastPath)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *PlanHandler) GetCatalog(c *gin.Context) {
	warehouses, products, err := h.planner.Catalog()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bodegas": warehouses, "productos": products})
}

func (h *PlanHandler) GetProjection(c *gin.Context) {
	rows, err := h.planner.Projection(c.Request.Context(), parseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": len(rows)})
}

func (h *PlanHandler) GetSummary(c *gin.Context) {
	summary, err := h.planner.Summary(c.Request.Context(), parseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (h *PlanHandler) GetSeries(c *gin.Context) {
	series, err := h.planner.ChartSeries(c.Request.Context(), parseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": series})
}

type registerPurchaseRequest struct {
	Warehouse string `json:"bodega" binding:"required"`
	Product   string `json:"producto" binding:"required"`
	OrderDate string `json:"fecha_compra" binding:"required"`
	Quantity  int    `json:"cantidad" binding:"required,gte=1"`
}

// RegisterPurchase appends a simulated purchase to the session ledger
// and implicitly invalidates every cached summary.
func (h *PlanHandler) RegisterPurchase(c *gin.Context) {
	var req registerPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid purchase request: %v", err)})
		return
	}

	orderDate, err := time.Parse("2006-01-02", req.OrderDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid fecha_compra %q, expected YYYY-MM-DD", req.OrderDate)})
		return
	}

	event, err := h.planner.RegisterPurchase(c.Request.Context(), service.PurchaseRequest{
		Warehouse: req.Warehouse,
		Product:   req.Product,
		OrderDate: orderDate,
		Quantity:  float64(req.Quantity),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": event})
}

func (h *PlanHandler) ListPurchases(c *gin.Context) {
	events, err := h.planner.Purchases()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events, "total": len(events)})
}

// DownloadExport streams the multi-sheet workbook (summary, projected
// dataset, purchase ledger) as an attachment.
func (h *PlanHandler) DownloadExport(c *gin.Context) {
	payload, err := h.planner.ExportWorkbook(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ExportFilename))
	c.Data(http.StatusOK, xlsxContentType, payload)
}

func (h *PlanHandler) PublishExport(c *gin.Context) {
	key, err := h.planner.PublishExport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"object_key": key})
}

// parseFilter reads warehouse/product filters from query params,
// supporting both repeated params and comma-separated values.
func parseFilter(c *gin.Context) service.Filter {
	return service.Filter{
		Warehouses: queryList(c, "bodega"),
		Products:   queryList(c, "producto"),
	}
}

func queryList(c *gin.Context, param string) []string {
	raw := c.QueryArray(param)
	if len(raw) == 0 {
		if single := strings.TrimSpace(c.Query(param)); single != "" {
			raw = []string{single}
		}
	}

	values := make([]string, 0, len(raw))
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}

// respondError maps the pipeline's error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var schemaErr *domain.SchemaError
	var unknownErr *domain.UnknownKeyError

	switch {
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": schemaErr.Error()})
	case errors.As(err, &unknownErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": unknownErr.Error()})
	case errors.Is(err, domain.ErrEmptyResult):
		c.JSON(http.StatusNotFound, gin.H{"warning": err.Error()})
	case errors.Is(err, service.ErrNoDataset):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStorageDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
