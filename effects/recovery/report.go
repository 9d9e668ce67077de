package recovery

import "time"

// Category classifies the origin of a recorded fault.
type Category string

const (
	CategoryShaderCompilation Category = "shader_compilation"
	CategoryDeviceContext     Category = "device_context"
	CategoryRenderTarget      Category = "render_target"
	CategoryFilterApplication Category = "filter_application"
	CategoryMemory            Category = "memory"
	CategoryUnknown           Category = "unknown"
)

// Severity ranks a fault's impact.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Health summarizes the handler's view of the subsystem.
type Health int

const (
	HealthHealthy Health = iota
	HealthWarning
	HealthCritical
)

// String returns the health name.
func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthWarning:
		return "warning"
	case HealthCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ErrorReport is one recorded fault, with the recovery strategy that handled
// it when one succeeded.
type ErrorReport struct {
	Timestamp time.Time
	Category  Category
	Severity  Severity
	Message   string
	Recovered bool
	Strategy  string
}
