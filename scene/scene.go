package scene

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/game_object"
	"github.com/Carmen-Shannon/oxy-postfx/render"
)

// Scene manages a registry of GameObjects and rasterizes them into a render
// target through the scene's Device. Object updates are fanned out across a
// persistent worker pool each tick. Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Viewport returns the scene's current view extent in world units.
	//
	// Returns:
	//   - common.Viewport: the view extent
	Viewport() common.Viewport

	// SetViewport replaces the scene's view extent. The orthographic projection
	// used by Rasterize is rebuilt from this value.
	//
	// Parameters:
	//   - vp: the new view extent, must be valid
	SetViewport(vp common.Viewport)

	// ClearColor returns the color the target is cleared to before drawing.
	ClearColor() common.Color

	// SetClearColor sets the color the target is cleared to before drawing.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c common.Color)

	// Count returns the number of persisted GameObjects in the scene's registry.
	// Does not include ephemeral objects.
	//
	// Returns:
	//   - int: count of non-ephemeral GameObjects in the registry
	Count() int

	// CountEphemeral returns the number of ephemeral GameObjects queued for the
	// next Rasterize call.
	//
	// Returns:
	//   - int: count of queued ephemeral GameObjects
	CountEphemeral() int

	// Add adds a GameObject to the scene and assigns it an ID if it has none.
	// Non-ephemeral objects are persisted in the registry for later lookup or
	// removal; ephemeral objects are drawn on the next Rasterize call only.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the assigned object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves a non-ephemeral GameObject by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove removes a non-ephemeral GameObject from the registry by ID.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - bool: true if an object with that ID was present
	Remove(id uint64) bool

	// Clear removes all objects from the scene.
	Clear()

	// Update advances every enabled object's registered property animators by
	// deltaTime seconds. Work is fanned out across the scene's worker pool with
	// a per-tick barrier; each object is touched by exactly one task.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last update in seconds
	Update(deltaTime float32)

	// Rasterize clears the target and draws every enabled object into it as a
	// colored sprite, depth-sorted by the device. Ephemeral objects queued since
	// the last call are drawn once and discarded.
	//
	// Parameters:
	//   - target: the surface to draw into
	//
	// Returns:
	//   - error: error if the clear or draw fails
	Rasterize(target render.Surface) error

	// Dispose clears the registry and ephemeral queue; the worker pool winds
	// down on its own idle timeout. The scene must not be used after Dispose.
	Dispose()
}

type scene struct {
	mu *sync.RWMutex

	name       string
	device     render.Device
	viewport   common.Viewport
	clearColor common.Color

	registry  map[uint64]game_object.GameObject
	ephemeral []game_object.GameObject
	nextID    uint64

	// Pre-allocated slice reused each frame to avoid per-frame allocations.
	instancePool []render.SpriteInstance

	// updatePool manages a bounded set of reusable goroutines for the parallel
	// animator advance in Update. Workers persist across frames, avoiding
	// per-frame goroutine spawn/teardown overhead.
	updatePool    worker.DynamicWorkerPool
	updateWorkers int

	disposed bool
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene drawing through the given Device with the given
// view extent. Both are required and NewScene panics if the device is nil or
// the viewport invalid.
//
// Parameters:
//   - name: the name of the scene
//   - device: the render device to draw through (must not be nil)
//   - viewport: the initial view extent in world units (must be valid)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, device render.Device, viewport common.Viewport, options ...SceneBuilderOption) Scene {
	if device == nil {
		panic("scene: NewScene requires a non-nil Device")
	}
	if !viewport.Valid() {
		panic(fmt.Sprintf("scene: NewScene requires a valid viewport, got %dx%d", viewport.Width, viewport.Height))
	}

	s := &scene{
		mu:            &sync.RWMutex{},
		name:          name,
		device:        device,
		viewport:      viewport,
		clearColor:    common.Color{R: 0, G: 0, B: 0, A: 1},
		registry:      make(map[uint64]game_object.GameObject),
		nextID:        1,
		updateWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the update pool after options so WithUpdateWorkers can override
	// the default. Queue size of 256 accommodates typical object counts with headroom.
	s.updatePool = worker.NewDynamicWorkerPool(s.updateWorkers, 256, 1*time.Second)

	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Viewport() common.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

func (s *scene) SetViewport(vp common.Viewport) {
	if !vp.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = vp
}

func (s *scene) ClearColor() common.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clearColor
}

func (s *scene) SetClearColor(c common.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearColor = c
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) CountEphemeral() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ephemeral)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obj.ID() == 0 {
		obj.SetID(s.nextID)
		s.nextID++
	}

	if obj.Ephemeral() {
		s.ephemeral = append(s.ephemeral, obj)
	} else {
		s.registry[obj.ID()] = obj
	}

	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registry[id]; !ok {
		return false
	}
	delete(s.registry, id)
	return true
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uint64]game_object.GameObject)
	s.ephemeral = nil
}

func (s *scene) Update(deltaTime float32) {
	s.mu.RLock()
	if s.disposed {
		s.mu.RUnlock()
		return
	}
	objects := make([]game_object.GameObject, 0, len(s.registry)+len(s.ephemeral))
	for _, obj := range s.registry {
		objects = append(objects, obj)
	}
	objects = append(objects, s.ephemeral...)
	s.mu.RUnlock()

	// Fan out each object's animators to the pool. A WaitGroup provides the
	// per-tick barrier since pool.Wait() blocks until workers idle-exit which
	// is unsuitable for frame-rate workloads.
	var wg sync.WaitGroup
	taskID := 0
	for _, obj := range objects {
		if !obj.Enabled() || len(obj.Animators()) == 0 {
			continue
		}

		wg.Add(1)
		objCap := obj // capture for closure
		id := taskID
		taskID++
		s.updatePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for _, animator := range objCap.Animators() {
					animator.Advance(objCap, deltaTime)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (s *scene) Rasterize(target render.Surface) error {
	if target == nil {
		return fmt.Errorf("scene: Rasterize requires a non-nil target")
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return fmt.Errorf("scene: Rasterize on disposed scene %q", s.name)
	}

	instances := s.instancePool[:0]
	for _, obj := range s.registry {
		if obj.Enabled() {
			instances = append(instances, obj.Sprite())
		}
	}
	for _, obj := range s.ephemeral {
		if obj.Enabled() {
			instances = append(instances, obj.Sprite())
		}
	}
	s.instancePool = instances
	s.ephemeral = s.ephemeral[:0]

	clearColor := s.clearColor
	viewProjection := make([]float32, 16)
	common.Ortho(viewProjection, 0, float32(s.viewport.Width), 0, float32(s.viewport.Height), -1, 1)
	s.mu.Unlock()

	if err := s.device.Clear(target, clearColor); err != nil {
		return fmt.Errorf("scene: failed to clear target: %w", err)
	}
	if len(instances) == 0 {
		return nil
	}
	if err := s.device.DrawSprites(target, viewProjection, instances); err != nil {
		return fmt.Errorf("scene: failed to draw %d sprites: %w", len(instances), err)
	}
	return nil
}

func (s *scene) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.registry = make(map[uint64]game_object.GameObject)
	s.ephemeral = nil
}
