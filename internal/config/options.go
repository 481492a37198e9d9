package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Options is the caller-facing tuning surface. Every field is a pointer so
// an absent field is distinguishable from an explicit zero; absent fields
// take the documented default.
type Options struct {
	SampleRate                *time.Duration     `json:"sampleRate" validate:"omitempty"`
	HistorySize               *int               `json:"historySize" validate:"omitempty,gte=1,lte=100000"`
	AnalysisInterval          *time.Duration     `json:"analysisInterval" validate:"omitempty"`
	EnableGPUMonitoring       *bool              `json:"enableGpuMonitoring"`
	EnableBatteryMonitoring   *bool              `json:"enableBatteryMonitoring"`
	EnableNetworkMonitoring   *bool              `json:"enableNetworkMonitoring"`
	EnableThermalMonitoring   *bool              `json:"enableThermalMonitoring"`
	EnableInteractionTracking *bool              `json:"enableInteractionTracking"`
	AlertThresholds           map[string]float64 `json:"alertThresholds"`
}

// FieldError reports one rejected option.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Merge overlays the options onto the telemetry configuration. Invalid
// fields are rejected and reported while valid fields are still applied;
// pass atomic to reject the whole set when any field is invalid.
func (c *TelemetryConfig) Merge(opts Options, atomic bool) []FieldError {
	errs := checkOptions(opts)
	if atomic && len(errs) > 0 {
		return errs
	}
	rejected := make(map[string]struct{}, len(errs))
	for _, e := range errs {
		rejected[e.Path] = struct{}{}
	}
	apply := func(path string) bool {
		_, bad := rejected[path]
		return !bad
	}

	if opts.SampleRate != nil && apply("sampleRate") {
		c.SampleRate = *opts.SampleRate
	}
	if opts.HistorySize != nil && apply("historySize") {
		c.HistorySize = *opts.HistorySize
	}
	if opts.AnalysisInterval != nil && apply("analysisInterval") {
		c.AnalysisInterval = *opts.AnalysisInterval
	}
	if opts.EnableGPUMonitoring != nil {
		c.EnableGPUMonitoring = *opts.EnableGPUMonitoring
	}
	if opts.EnableBatteryMonitoring != nil {
		c.EnableBatteryMonitoring = *opts.EnableBatteryMonitoring
	}
	if opts.EnableNetworkMonitoring != nil {
		c.EnableNetworkMonitoring = *opts.EnableNetworkMonitoring
	}
	if opts.EnableThermalMonitoring != nil {
		c.EnableThermalMonitoring = *opts.EnableThermalMonitoring
	}
	if opts.EnableInteractionTracking != nil {
		c.EnableInteractionTracking = *opts.EnableInteractionTracking
	}
	if opts.AlertThresholds != nil && apply("alertThresholds") {
		if c.AlertThresholds == nil {
			c.AlertThresholds = make(map[string]float64, len(opts.AlertThresholds))
		}
		for metric, value := range opts.AlertThresholds {
			c.AlertThresholds[metric] = value
		}
	}
	return errs
}

// checkOptions combines struct-tag validation with the range rules the
// tags cannot express (durations validate as int64 nanoseconds).
func checkOptions(opts Options) []FieldError {
	var errs []FieldError

	if err := validate.Struct(opts); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok {
			for _, fe := range verrs {
				errs = append(errs, FieldError{
					Path:    jsonPath(fe.Field()),
					Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
				})
			}
		} else {
			errs = append(errs, FieldError{Path: "options", Message: err.Error()})
		}
	}

	if opts.SampleRate != nil && (*opts.SampleRate < 10*time.Millisecond || *opts.SampleRate > time.Minute) {
		errs = append(errs, FieldError{Path: "sampleRate", Message: "must be between 10ms and 1m"})
	}
	if opts.AnalysisInterval != nil && (*opts.AnalysisInterval < time.Second || *opts.AnalysisInterval > 10*time.Minute) {
		errs = append(errs, FieldError{Path: "analysisInterval", Message: "must be between 1s and 10m"})
	}
	for metric, value := range opts.AlertThresholds {
		if value < 0 {
			errs = append(errs, FieldError{Path: "alertThresholds", Message: fmt.Sprintf("threshold for %q must be non-negative", metric)})
			break
		}
	}
	return errs
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// jsonPath lowers a Go field name to its JSON form.
func jsonPath(field string) string {
	switch field {
	case "SampleRate":
		return "sampleRate"
	case "HistorySize":
		return "historySize"
	case "AnalysisInterval":
		return "analysisInterval"
	case "EnableGPUMonitoring":
		return "enableGpuMonitoring"
	case "EnableBatteryMonitoring":
		return "enableBatteryMonitoring"
	case "EnableNetworkMonitoring":
		return "enableNetworkMonitoring"
	case "EnableThermalMonitoring":
		return "enableThermalMonitoring"
	case "EnableInteractionTracking":
		return "enableInteractionTracking"
	case "AlertThresholds":
		return "alertThresholds"
	default:
		return field
	}
}
