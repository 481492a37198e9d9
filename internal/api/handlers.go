package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vizstack/rendertune/internal/config"
	"github.com/vizstack/rendertune/internal/engine"
	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/registry"
)

type handlers struct {
	engine *engine.Engine
	logger *slog.Logger
}

func (h *handlers) register(router *gin.Engine, hub *Hub) {
	router.GET("/healthz", h.health)
	router.GET("/metrics", metricsHandler())
	router.GET("/ws", hub.Serve)

	v1 := router.Group("/api/v1")
	v1.GET("/snapshot", h.snapshot)
	v1.GET("/history", h.history)
	v1.GET("/capability", h.capability)
	v1.GET("/analysis", h.analysis)
	v1.GET("/patterns", h.patterns)
	v1.GET("/conflicts", h.conflicts)
	v1.GET("/profiles", h.profiles)
	v1.GET("/profiles/:id", h.profile)
	v1.GET("/alerts", h.alerts)
	v1.POST("/alerts/:id/ack", h.acknowledgeAlert)
	v1.POST("/alerts/:id/dismiss", h.dismissAlert)
	v1.GET("/rules", h.rules)
	v1.PUT("/rules", h.upsertRule)
	v1.POST("/rules/:id/enabled", h.setRuleEnabled)
	v1.POST("/modules/discover", h.discoverModules)
	v1.POST("/modules/order", h.loadingOrder)
	v1.POST("/options", h.applyOptions)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

func (h *handlers) history(c *gin.Context) {
	moduleID := c.Query("module")
	c.JSON(http.StatusOK, gin.H{"snapshots": h.engine.History(moduleID)})
}

func (h *handlers) capability(c *gin.Context) {
	caps := h.engine.Capabilities()
	c.JSON(http.StatusOK, gin.H{
		"capabilities":       caps,
		"recommendedQuality": caps.RecommendedQuality(),
	})
}

func (h *handlers) analysis(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.LastAnalysis())
}

func (h *handlers) patterns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"patterns": h.engine.LastAnalysis().Patterns})
}

func (h *handlers) conflicts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"conflicts": h.engine.LastAnalysis().Conflicts})
}

func (h *handlers) profiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": h.engine.Profiles()})
}

func (h *handlers) profile(c *gin.Context) {
	id := c.Param("id")
	for _, p := range h.engine.Profiles() {
		if p.ModuleID == id {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown module " + id})
}

func (h *handlers) alerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": h.engine.Alerts().History()})
}

func (h *handlers) acknowledgeAlert(c *gin.Context) {
	id := c.Param("id")
	if !h.engine.Alerts().Acknowledge(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown alert " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": id})
}

func (h *handlers) dismissAlert(c *gin.Context) {
	id := c.Param("id")
	if !h.engine.Alerts().Dismiss(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown alert " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": id})
}

func (h *handlers) rules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": h.engine.Alerts().Rules()})
}

func (h *handlers) upsertRule(c *gin.Context) {
	var rule models.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if rule.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rule id is required"})
		return
	}
	h.engine.Alerts().UpsertRule(rule)
	c.JSON(http.StatusOK, gin.H{"rule": rule.ID})
}

func (h *handlers) setRuleEnabled(c *gin.Context) {
	id := c.Param("id")
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.engine.Alerts().SetRuleEnabled(id, body.Enabled) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown rule " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": id, "enabled": body.Enabled})
}

// discoverRequest is the JSON shape of a discovery query. The device set
// defaults to the probed capabilities when omitted.
type discoverRequest struct {
	Category     string                `json:"category"`
	Capabilities []string              `json:"capabilities"`
	MaxMemoryMB  float64               `json:"maxMemoryMB"`
	Tags         []string              `json:"tags"`
	Device       *models.CapabilitySet `json:"device,omitempty"`
}

func (h *handlers) discoverModules(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	device := h.engine.Capabilities()
	if req.Device != nil {
		device = *req.Device
	}
	candidates := h.engine.Registry().Discover(registry.Criteria{
		Category:     req.Category,
		Capabilities: req.Capabilities,
		MaxMemoryMB:  req.MaxMemoryMB,
		Tags:         req.Tags,
		Device:       device,
	})
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

func (h *handlers) loadingOrder(c *gin.Context) {
	var body struct {
		Modules []string `json:"modules"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.engine.Registry().LoadingOrder(body.Modules)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *handlers) applyOptions(c *gin.Context) {
	var opts config.Options
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	atomic := c.Query("atomic") == "true"
	rejected := h.engine.ApplyOptions(opts, atomic)
	status := http.StatusOK
	if atomic && len(rejected) > 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"rejected": rejected})
}
