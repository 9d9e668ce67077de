package game_object

import (
	"github.com/Carmen-Shannon/oxy-postfx/common"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithEnabled sets whether the GameObject is enabled for rendering.
//
// Parameters:
//   - enabled: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithEphemeral marks the GameObject as ephemeral. Ephemeral objects are not
// persisted in the scene's registry when added via Scene.Add; they are drawn
// for the current frame only.
//
// Parameters:
//   - ephemeral: true to mark as ephemeral
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Ephemeral flag
func WithEphemeral(ephemeral bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.ephemeral = ephemeral
	}
}

// WithPosition sets the initial position of the GameObject in world units.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial position
func WithPosition(x, y float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.x, obj.y = x, y
	}
}

// WithSize sets the extent of the GameObject in world units.
//
// Parameters:
//   - w: the width
//   - h: the height
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the extent
func WithSize(w, h float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.w, obj.h = w, h
	}
}

// WithDepth sets the draw depth of the GameObject. Objects with larger depth
// values draw on top of objects with smaller values.
//
// Parameters:
//   - depth: the depth value
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the draw depth
func WithDepth(depth float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.depth = depth
	}
}

// WithColor sets the fill color of the GameObject.
//
// Parameters:
//   - c: the RGBA color
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the color
func WithColor(c common.Color) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.color = c
	}
}

// WithVelocity sets the initial velocity of the GameObject and registers the
// built-in "position" animator that integrates it each update tick.
//
// Parameters:
//   - vx: the x velocity in world units per second
//   - vy: the y velocity in world units per second
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the velocity
func WithVelocity(vx, vy float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.velocityX, obj.velocityY = vx, vy
		obj.animators = append(obj.animators, PropertyAnimator{
			Name: "position",
			Advance: func(o GameObject, dt float32) {
				cvx, cvy := o.Velocity()
				x, y := o.Position()
				o.SetPosition(x+cvx*dt, y+cvy*dt)
			},
		})
	}
}

// WithAnimator registers a custom property animator on the GameObject. The
// registry is fixed after construction; animators cannot be added or removed
// once the object exists.
//
// Parameters:
//   - animator: the property animator to register
//
// Returns:
//   - GameObjectBuilderOption: functional option to register the animator
func WithAnimator(animator PropertyAnimator) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.animators = append(obj.animators, animator)
	}
}
