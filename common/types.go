// package common contains common types that are used throughout this subsystem. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Viewport describes the pixel dimensions of a render target or display surface.
type Viewport struct {
	// Width is the viewport width in pixels.
	Width int
	// Height is the viewport height in pixels.
	Height int
}

// Aspect returns the viewport aspect ratio (width / height), or 0 when the
// viewport is degenerate.
//
// Returns:
//   - float64: width divided by height, or 0 if height is 0
func (v Viewport) Aspect() float64 {
	if v.Height == 0 {
		return 0
	}
	return float64(v.Width) / float64(v.Height)
}

// Valid reports whether both viewport dimensions are positive.
//
// Returns:
//   - bool: true when Width > 0 and Height > 0
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// Color is an RGBA color with float channels in [0, 1].
// Used for scene clear colors and sprite tints.
type Color struct {
	// R, G, B, A are the red, green, blue, and alpha channels in [0, 1].
	R, G, B, A float32
}
