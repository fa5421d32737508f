package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"blend-quality-service/internal/blend"
	"blend-quality-service/internal/catalog"
	"blend-quality-service/internal/config"
	"blend-quality-service/internal/db"
	"blend-quality-service/internal/logging"
	"blend-quality-service/internal/models"
	"blend-quality-service/internal/pipeline"
)

type Handler struct {
	db      *db.DB
	catalog catalog.Catalog
	svc     *pipeline.Service
	logger  *logging.Logger
	config  config.Config

	mu    sync.RWMutex
	index *catalog.DimensionIndex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func NewHandler(database *db.DB, cat catalog.Catalog, svc *pipeline.Service, logger *logging.Logger, cfg config.Config) *Handler {
	h := &Handler{db: database, catalog: cat, svc: svc, logger: logger, config: cfg}
	h.rebuildIndex()
	return h
}

// rebuildIndex refreshes the filter-dimension index from the stored
// specification set. Called at startup and after spec mutations, never per
// query.
func (h *Handler) rebuildIndex() {
	specs, err := h.db.ListSpecifications(context.Background())
	if err != nil {
		h.logger.Errorf("Failed to build dimension index: %v", err)
		return
	}
	keys := make([]models.SpecKey, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.Key)
	}
	h.mu.Lock()
	h.index = catalog.BuildIndex(keys)
	h.mu.Unlock()
}

// specificationRequest is the wire shape for creating a specification.
// Absent limits become intentionally unconstrained bounds.
type specificationRequest struct {
	PlantName         string   `json:"plant_name" binding:"required"`
	PlantLine         string   `json:"plant_line" binding:"required"`
	ProductName       string   `json:"product_name" binding:"required"`
	PlantID           int      `json:"plant_id"`
	ProductID         int64    `json:"product_id"`
	MinDryMatterPct   *float64 `json:"min_dry_matter_pct"`
	MaxDryMatterPct   *float64 `json:"max_dry_matter_pct"`
	MaxDefectPoints   *float64 `json:"max_defect_points"`
	MinAvgLengthMM    *float64 `json:"min_avg_length_mm"`
	TargetAvgLengthMM *float64 `json:"target_avg_length_mm"`
	MaxAvgLengthMM    *float64 `json:"max_avg_length_mm"`
	MaxColorPct       []*float64 `json:"max_usda_color_pct"`
	ApprovedVarieties []string `json:"approved_potato_varieties"`
}

func (r specificationRequest) toModel() models.Specification {
	spec := models.Specification{
		Key: models.SpecKey{
			PlantName:   r.PlantName,
			PlantLine:   r.PlantLine,
			ProductName: r.ProductName,
		},
		PlantID:           r.PlantID,
		ProductID:         r.ProductID,
		MinDryMatterPct:   toBound(r.MinDryMatterPct),
		MaxDryMatterPct:   toBound(r.MaxDryMatterPct),
		MaxDefectPoints:   toBound(r.MaxDefectPoints),
		MinAvgLengthMM:    toBound(r.MinAvgLengthMM),
		TargetAvgLengthMM: toBound(r.TargetAvgLengthMM),
		MaxAvgLengthMM:    toBound(r.MaxAvgLengthMM),
		ApprovedVarieties: r.ApprovedVarieties,
	}
	for i := 0; i < len(r.MaxColorPct) && i < 5; i++ {
		spec.MaxColorPct[i] = toBound(r.MaxColorPct[i])
	}
	return spec
}

func toBound(v *float64) models.Bound {
	if v == nil {
		return models.Bound{}
	}
	return models.NewBound(*v)
}

func (h *Handler) CreateSpecification(c *gin.Context) {
	var req specificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid specification request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	spec := req.toModel()
	if err := h.db.UpsertSpecification(c.Request.Context(), spec); err != nil {
		h.logger.Errorf("Failed to upsert specification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store specification"})
		return
	}

	h.rebuildIndex()
	h.logger.Infof("Stored specification for %s/%s/%s", spec.Key.PlantName, spec.Key.PlantLine, spec.Key.ProductName)
	c.JSON(http.StatusCreated, spec)
}

func (h *Handler) ListSpecifications(c *gin.Context) {
	specs, err := h.db.ListSpecifications(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list specifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list specifications"})
		return
	}
	c.JSON(http.StatusOK, specs)
}

func specKeyParam(c *gin.Context) models.SpecKey {
	return models.SpecKey{
		PlantName:   c.Param("plant"),
		PlantLine:   c.Param("line"),
		ProductName: c.Param("product"),
	}
}

func (h *Handler) GetSpecification(c *gin.Context) {
	key := specKeyParam(c)
	spec, err := h.db.GetSpecification(c.Request.Context(), key)
	if errors.Is(err, blend.ErrSpecificationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Specification not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to get specification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get specification"})
		return
	}
	c.JSON(http.StatusOK, spec)
}

func (h *Handler) DeleteSpecification(c *gin.Context) {
	key := specKeyParam(c)
	err := h.db.DeleteSpecification(c.Request.Context(), key)
	if errors.Is(err, blend.ErrSpecificationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Specification not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to delete specification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete specification"})
		return
	}
	h.rebuildIndex()
	c.JSON(http.StatusOK, gin.H{"message": "Specification deleted"})
}

// parseFilter reads the shared query parameters for result/KPI endpoints.
// Defaults to the trailing 7 days.
func parseFilter(c *gin.Context) (db.ResultFilter, error) {
	f := db.ResultFilter{
		PlantName:   c.Query("plant"),
		PlantLine:   c.Query("line"),
		ProductName: c.Query("product"),
		To:          time.Now().UTC(),
	}
	f.From = f.To.AddDate(0, 0, -7)

	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, err
		}
		f.From = ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, err
		}
		f.To = ts
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, err
		}
		f.Limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, err
		}
		f.Offset = n
	}
	return f, nil
}

func (h *Handler) GetComplianceResults(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results, err := h.db.GetComplianceResults(c.Request.Context(), filter)
	if err != nil {
		h.logger.Errorf("Failed to get compliance results: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get compliance results"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) GetSuggestions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	suggestions, err := h.db.GetSuggestions(c.Request.Context(), filter)
	if err != nil {
		h.logger.Errorf("Failed to get suggestions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get suggestions"})
		return
	}
	c.JSON(http.StatusOK, suggestions)
}

// loadHourRecords joins stored hours with their specifications for the KPI
// reduction. Buckets whose specification has since disappeared are counted,
// not silently scored.
func (h *Handler) loadHourRecords(c *gin.Context, filter db.ResultFilter) ([]blend.HourRecord, int, error) {
	rows, err := h.db.GetHourRecords(c.Request.Context(), filter)
	if err != nil {
		return nil, 0, err
	}

	specCache := map[models.SpecKey]*models.Specification{}
	var records []blend.HourRecord
	skipped := 0
	for _, row := range rows {
		key := row.Summary.Key.SpecKey()
		spec, cached := specCache[key]
		if !cached {
			resolved, err := h.catalog.Resolve(c.Request.Context(), key)
			if errors.Is(err, blend.ErrSpecificationNotFound) {
				specCache[key] = nil
				skipped++
				continue
			}
			if err != nil {
				return nil, 0, err
			}
			spec = &resolved
			specCache[key] = spec
		}
		if spec == nil {
			skipped++
			continue
		}
		records = append(records, blend.HourRecord{
			Summary:    row.Summary,
			Result:     row.Result,
			Suggestion: row.Suggestion,
			Spec:       *spec,
		})
	}
	return records, skipped, nil
}

func (h *Handler) GetDailyKPIs(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, skipped, err := h.loadHourRecords(c, filter)
	if err != nil {
		h.logger.Errorf("Failed to load hour records: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kpis":            blend.DailyRollup(records, h.config.CostPerTonne),
		"skipped_buckets": skipped,
	})
}

func (h *Handler) GetWeeklyKPIs(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, skipped, err := h.loadHourRecords(c, filter)
	if err != nil {
		h.logger.Errorf("Failed to load hour records: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kpis":            blend.WeeklyRollup(records, h.config.CostPerTonne),
		"skipped_buckets": skipped,
	})
}

func (h *Handler) GetDimensions(c *gin.Context) {
	h.mu.RLock()
	idx := h.index
	h.mu.RUnlock()
	if idx == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Dimension index not ready"})
		return
	}

	plant := c.Query("plant")
	line := c.Query("line")
	switch {
	case plant != "" && line != "":
		c.JSON(http.StatusOK, gin.H{"products": idx.Products(plant, line)})
	case plant != "":
		c.JSON(http.StatusOK, gin.H{"lines": idx.Lines(plant)})
	default:
		c.JSON(http.StatusOK, gin.H{"plants": idx.Plants()})
	}
}

// WebSocket subscribes the caller to a plant's live compliance alerts.
func (h *Handler) WebSocket(c *gin.Context) {
	plant := c.Param("plant")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	h.svc.WebSockets().AddConnection(plant, conn)
	defer func() {
		h.svc.WebSockets().RemoveConnection(plant, conn)
		conn.Close()
	}()

	// Hold the connection open; we only push, clients only close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
