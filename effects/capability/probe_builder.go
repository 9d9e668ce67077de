package capability

// ProbeBuilderOption is a functional option for configuring a Probe during construction.
// Host attributes default to the running process; options exist so tests can
// pin them to known values.
type ProbeBuilderOption func(*probe)

// WithPlatform overrides the detected platform string.
//
// Parameters:
//   - platform: the platform string (GOOS style, e.g. "linux", "android")
//
// Returns:
//   - ProbeBuilderOption: functional option to set the platform
func WithPlatform(platform string) ProbeBuilderOption {
	return func(p *probe) {
		p.platform = platform
	}
}

// WithLogicalCores overrides the detected logical CPU count.
//
// Parameters:
//   - cores: the logical core count
//
// Returns:
//   - ProbeBuilderOption: functional option to set the core count
func WithLogicalCores(cores int) ProbeBuilderOption {
	return func(p *probe) {
		if cores >= 1 {
			p.logicalCores = cores
		}
	}
}
