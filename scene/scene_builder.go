package scene

import (
	"github.com/Carmen-Shannon/oxy-postfx/common"
)

// SceneBuilderOption is a functional option for configuring a Scene during construction.
type SceneBuilderOption func(*scene)

// WithUpdateWorkers overrides the number of goroutines in the scene's update
// pool. Defaults to NumCPU-1 (minimum 1). Values below 1 are ignored.
//
// Parameters:
//   - workers: the worker count
//
// Returns:
//   - SceneBuilderOption: functional option to set the worker count
func WithUpdateWorkers(workers int) SceneBuilderOption {
	return func(s *scene) {
		if workers >= 1 {
			s.updateWorkers = workers
		}
	}
}

// WithClearColor sets the color the target is cleared to before each draw.
// Defaults to opaque black.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - SceneBuilderOption: functional option to set the clear color
func WithClearColor(c common.Color) SceneBuilderOption {
	return func(s *scene) {
		s.clearColor = c
	}
}
