package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/render"
)

// PropertyAnimator advances one named animatable property of an object by dt
// seconds. Animators are registered at construction; the scene resolves the
// full list once when the object is added and never probes for properties at
// frame time.
type PropertyAnimator struct {
	// Name identifies the animated property (e.g. "position", "pulse").
	Name string

	// Advance mutates the object's property by dt seconds.
	Advance func(obj GameObject, dt float32)
}

type gameObject struct {
	mu sync.Mutex

	id        uint64
	enabled   atomic.Bool
	ephemeral bool

	x, y  float32
	w, h  float32
	depth float32
	color common.Color

	velocityX, velocityY float32

	animators []PropertyAnimator
}

// GameObject defines the interface for a 2D scene entity: a colored sprite
// with a transform and a fixed set of animatable properties resolved at
// construction time.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled sets whether the object is enabled for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// Ephemeral returns whether this object is ephemeral.
	// Ephemeral objects are not persisted in the scene's registry when added.
	//
	// Returns:
	//   - bool: true if ephemeral
	Ephemeral() bool

	// Position returns the object's current position in world units.
	//
	// Returns:
	//   - x, y: position components
	Position() (x, y float32)

	// SetPosition updates the object's position.
	//
	// Parameters:
	//   - x, y: new position components
	SetPosition(x, y float32)

	// Size returns the object's extent in world units.
	//
	// Returns:
	//   - w, h: width and height
	Size() (w, h float32)

	// SetSize updates the object's extent.
	//
	// Parameters:
	//   - w, h: new width and height
	SetSize(w, h float32)

	// Depth returns the object's draw depth (larger draws on top).
	//
	// Returns:
	//   - float32: the depth value
	Depth() float32

	// SetDepth updates the object's draw depth.
	//
	// Parameters:
	//   - depth: the new depth value
	SetDepth(depth float32)

	// Color returns the object's fill color.
	//
	// Returns:
	//   - common.Color: the RGBA color
	Color() common.Color

	// SetColor updates the object's fill color.
	//
	// Parameters:
	//   - c: the new RGBA color
	SetColor(c common.Color)

	// Velocity returns the object's velocity in world units per second.
	//
	// Returns:
	//   - vx, vy: velocity components
	Velocity() (vx, vy float32)

	// SetVelocity updates the object's velocity.
	//
	// Parameters:
	//   - vx, vy: new velocity components
	SetVelocity(vx, vy float32)

	// Animators returns the animatable-property registry resolved at
	// construction. The scene advances these each update tick; the list never
	// changes after construction.
	//
	// Returns:
	//   - []PropertyAnimator: the registered property animators
	Animators() []PropertyAnimator

	// Sprite returns a snapshot of the object as a drawable sprite instance.
	//
	// Returns:
	//   - render.SpriteInstance: the sprite snapshot
	Sprite() render.SpriteInstance
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Objects default to enabled with a 1x1 extent and opaque white color.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		w:     1,
		h:     1,
		color: common.Color{R: 1, G: 1, B: 1, A: 1},
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Ephemeral() bool {
	return g.ephemeral
}

func (g *gameObject) Position() (x, y float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.x, g.y
}

func (g *gameObject) SetPosition(x, y float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.x, g.y = x, y
}

func (g *gameObject) Size() (w, h float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.w, g.h
}

func (g *gameObject) SetSize(w, h float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.w, g.h = w, h
}

func (g *gameObject) Depth() float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.depth
}

func (g *gameObject) SetDepth(depth float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.depth = depth
}

func (g *gameObject) Color() common.Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.color
}

func (g *gameObject) SetColor(c common.Color) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.color = c
}

func (g *gameObject) Velocity() (vx, vy float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.velocityX, g.velocityY
}

func (g *gameObject) SetVelocity(vx, vy float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.velocityX, g.velocityY = vx, vy
}

func (g *gameObject) Animators() []PropertyAnimator {
	return g.animators
}

func (g *gameObject) Sprite() render.SpriteInstance {
	g.mu.Lock()
	defer g.mu.Unlock()
	return render.SpriteInstance{
		X:     g.x,
		Y:     g.y,
		W:     g.w,
		H:     g.h,
		Z:     g.depth,
		Color: g.color,
	}
}
