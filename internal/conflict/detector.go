// Package conflict checks aggregate resource consumption across the
// concurrently active modules and proposes resolutions.
package conflict

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/utils"
)

// Aggregate thresholds. Per-module figures come from profiler attribution.
const (
	memoryConflictMB     = 500
	memoryHighMB         = 650
	memoryCriticalMB     = 800
	memoryPerModuleMB    = 100
	memoryHeavyModuleMax = 2
	gpuShaderLimit       = 20
	gpuTextureLimit      = 50
	cpuConflictPct       = 80
	cpuHighPct           = 95
)

// Detector scans active module profiles for cross-module overconsumption.
type Detector struct {
	logger *slog.Logger
	clock  utils.Clock
}

// NewDetector constructs a Detector.
func NewDetector(clock utils.Clock, logger *slog.Logger) *Detector {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger, clock: clock}
}

// Detect runs all conflict checks. Returns nil unless at least two modules
// are active; a single module cannot conflict with itself.
func (d *Detector) Detect(active []models.ModuleProfile) []models.ResourceConflict {
	if len(active) < 2 {
		return nil
	}

	var conflicts []models.ResourceConflict
	if c, ok := d.detectMemory(active); ok {
		conflicts = append(conflicts, c)
	}
	if c, ok := d.detectGPU(active); ok {
		conflicts = append(conflicts, c)
	}
	if c, ok := d.detectCPU(active); ok {
		conflicts = append(conflicts, c)
	}

	for _, c := range conflicts {
		d.logger.Warn("resource conflict detected",
			slog.String("type", string(c.Type)),
			slog.String("severity", string(c.Severity)),
			slog.Int("modules", len(c.InvolvedModules)))
	}
	return conflicts
}

func (d *Detector) detectMemory(active []models.ModuleProfile) (models.ResourceConflict, bool) {
	total := 0.0
	heavy := 0
	for _, p := range active {
		total += p.Rollup.AvgMemoryMB
		if p.Rollup.AvgMemoryMB > memoryPerModuleMB {
			heavy++
		}
	}
	if total <= memoryConflictMB && heavy <= memoryHeavyModuleMax {
		return models.ResourceConflict{}, false
	}

	severity := models.SeverityMedium
	switch {
	case total > memoryCriticalMB:
		severity = models.SeverityCritical
	case total > memoryHighMB:
		severity = models.SeverityHigh
	}

	detail := fmt.Sprintf("combined module memory %.0fMB exceeds %dMB budget", total, memoryConflictMB)
	if total <= memoryConflictMB {
		detail = fmt.Sprintf("%d modules each exceed %dMB", heavy, memoryPerModuleMB)
	}

	return models.ResourceConflict{
		ID:              uuid.NewString(),
		Type:            models.ConflictMemory,
		Severity:        severity,
		InvolvedModules: moduleIDs(active),
		ImpactEstimate:  impactForSeverity(severity),
		Detail:          detail,
		Resolutions: []models.ResolutionStrategy{
			{
				Name:           "reduce-quality",
				Description:    "Lower quality tier of the heaviest module",
				ImpactEstimate: -10,
				Automatic:      true,
			},
			{
				Name:           "deactivate-heaviest",
				Description:    "Deactivate the module with the highest memory attribution",
				ImpactEstimate: -25,
				Automatic:      false,
			},
		},
		DetectedAt: d.clock.Now(),
	}, true
}

func (d *Detector) detectGPU(active []models.ModuleProfile) (models.ResourceConflict, bool) {
	shaders, textures := 0, 0
	for _, p := range active {
		shaders += p.Resources.ShaderCount
		textures += p.Resources.TextureCount
	}
	if shaders <= gpuShaderLimit && textures <= gpuTextureLimit {
		return models.ResourceConflict{}, false
	}

	return models.ResourceConflict{
		ID:              uuid.NewString(),
		Type:            models.ConflictGPU,
		Severity:        models.SeverityHigh,
		InvolvedModules: moduleIDs(active),
		ImpactEstimate:  impactForSeverity(models.SeverityHigh),
		Detail:          fmt.Sprintf("combined GPU resources: %d shader programs, %d textures", shaders, textures),
		Resolutions: []models.ResolutionStrategy{
			{
				Name:           "limit-gpu-resources",
				Description:    "Cap shader and texture allocation per module",
				ImpactEstimate: -15,
				Automatic:      true,
			},
			{
				Name:           "canvas-fallback",
				Description:    "Move the lightest module to its Canvas2D backend",
				ImpactEstimate: -20,
				Automatic:      false,
			},
		},
		DetectedAt: d.clock.Now(),
	}, true
}

func (d *Detector) detectCPU(active []models.ModuleProfile) (models.ResourceConflict, bool) {
	total := 0.0
	for _, p := range active {
		total += p.Resources.CPUPct
	}
	if total <= cpuConflictPct {
		return models.ResourceConflict{}, false
	}

	severity := models.SeverityMedium
	if total > cpuHighPct {
		severity = models.SeverityHigh
	}

	return models.ResourceConflict{
		ID:              uuid.NewString(),
		Type:            models.ConflictCPU,
		Severity:        severity,
		InvolvedModules: moduleIDs(active),
		ImpactEstimate:  impactForSeverity(severity),
		Detail:          fmt.Sprintf("combined render+update CPU at %.0f%%", total),
		Resolutions: []models.ResolutionStrategy{
			{
				Name:           "round-robin",
				Description:    "Schedule module updates round-robin across frames",
				ImpactEstimate: -12,
				Automatic:      true,
			},
			{
				Name:           "reduce-tick-rate",
				Description:    "Halve the update frequency of background modules",
				ImpactEstimate: -18,
				Automatic:      false,
			},
		},
		DetectedAt: d.clock.Now(),
	}, true
}

func moduleIDs(profiles []models.ModuleProfile) []string {
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ModuleID)
	}
	sort.Strings(ids)
	return ids
}

// impactForSeverity estimates the perceived-performance cost of leaving the
// conflict unresolved.
func impactForSeverity(s models.Severity) float64 {
	switch s {
	case models.SeverityCritical:
		return 40
	case models.SeverityHigh:
		return 25
	default:
		return 15
	}
}
