package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	lru "github.com/hashicorp/golang-lru/v2"
	xdraw "golang.org/x/image/draw"
)

// softwareTexture is the Texture handle for the software backend.
type softwareTexture struct {
	img      *image.RGBA
	sampling FilterMode
}

func (t *softwareTexture) Size() common.Viewport {
	b := t.img.Bounds()
	return common.Viewport{Width: b.Dx(), Height: b.Dy()}
}

// softwareSurface is an off-screen render target backed by an image.RGBA.
type softwareSurface struct {
	label    string
	img      *image.RGBA
	format   PixelFormat
	sampling FilterMode
	released bool
}

func (s *softwareSurface) Size() common.Viewport {
	b := s.img.Bounds()
	return common.Viewport{Width: b.Dx(), Height: b.Dy()}
}

func (s *softwareSurface) Format() PixelFormat {
	return s.format
}

func (s *softwareSurface) Texture() Texture {
	return &softwareTexture{img: s.img, sampling: s.sampling}
}

// Image exposes the surface's backing pixels for readback. Software backend
// only; callers reach it through a type assertion.
func (s *softwareSurface) Image() *image.RGBA {
	return s.img
}

func (s *softwareSurface) Released() bool {
	return s.released
}

func (s *softwareSurface) Release() {
	s.released = true
}

// softwareFilterProgram is a "compiled" filter for the software backend: the
// source is validated and a CPU kernel is selected from the program key.
type softwareFilterProgram struct {
	key      string
	source   string
	kernel   cpuKernel
	released bool
}

func (p *softwareFilterProgram) Key() string {
	return p.key
}

func (p *softwareFilterProgram) Source() string {
	return p.source
}

func (p *softwareFilterProgram) Release() {
	p.released = true
}

// softwareDeviceBackend implements Device on the CPU. Surfaces are image.RGBA
// buffers and filter programs run as Go kernels, so the whole chain is
// executable without a GPU. Scaling uses x/image/draw interpolators.
type softwareDeviceBackend struct {
	mu *sync.Mutex

	display *softwareSurface
	limits  Limits

	// scratchCache pools intermediate scale buffers keyed by dimensions so
	// per-frame filter passes don't reallocate. Purgeable under memory
	// pressure; entries are rebuilt on demand.
	scratchCache *lru.Cache[string, *image.RGBA]

	released bool
}

var _ Device = &softwareDeviceBackend{}

// newSoftwareDeviceBackend creates the CPU reference backend.
func newSoftwareDeviceBackend(viewport common.Viewport, cfg *deviceConfig) *softwareDeviceBackend {
	cache, err := lru.New[string, *image.RGBA](cfg.cacheSize)
	if err != nil {
		panic(err)
	}
	b := &softwareDeviceBackend{
		mu:           &sync.Mutex{},
		scratchCache: cache,
		limits: Limits{
			MaxTextureSize:    8192,
			MaxTextureUnits:   16,
			MaxVaryingVectors: 8,
			FloatTextures:     false,
			Renderer:          "oxy-postfx software rasterizer",
		},
	}
	b.ConfigureDisplay(viewport.Width, viewport.Height)
	return b
}

// kernelNameFromKey selects the CPU kernel for a program key. The base name is
// the last '.'-separated token, with any '#' retry suffix stripped, so
// "postfx.grain" and "postfx.grain#1" both resolve to "grain" and a recovery
// passthrough compiled as "postfx.grain.passthrough" resolves to "passthrough".
func kernelNameFromKey(key string) string {
	if i := strings.IndexByte(key, '#'); i >= 0 {
		key = key[:i]
	}
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	return key
}

func (b *softwareDeviceBackend) CompileFilter(key, source string) (FilterProgram, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("failed to compile filter %q: empty source", key)
	}
	if !strings.Contains(source, "fn fs_main") {
		return nil, fmt.Errorf("failed to compile filter %q: no fs_main entry point", key)
	}

	name := kernelNameFromKey(key)
	kernel, ok := cpuKernels[name]
	if !ok {
		return nil, fmt.Errorf("failed to compile filter %q: no CPU kernel %q", key, name)
	}

	return &softwareFilterProgram{key: key, source: source, kernel: kernel}, nil
}

func (b *softwareDeviceBackend) CreateSurface(opts SurfaceOptions) (Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid surface dimensions %dx%d", opts.Width, opts.Height)
	}
	if opts.Width > b.limits.MaxTextureSize || opts.Height > b.limits.MaxTextureSize {
		return nil, fmt.Errorf("surface %dx%d exceeds max texture size %d", opts.Width, opts.Height, b.limits.MaxTextureSize)
	}
	if (opts.Format == FormatRGBA16Float || opts.Format == FormatRGBA32Float) && !b.limits.FloatTextures {
		return nil, fmt.Errorf("float surface format %v not supported by this backend", opts.Format)
	}

	return &softwareSurface{
		label:    opts.Label,
		img:      image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
		format:   opts.Format,
		sampling: opts.Sampling,
	}, nil
}

func (b *softwareDeviceBackend) ConfigureDisplay(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.display = &softwareSurface{
		label:    "Display",
		img:      image.NewRGBA(image.Rect(0, 0, width, height)),
		format:   FormatRGBA8Unorm,
		sampling: FilterNearest,
	}
}

func (b *softwareDeviceBackend) DisplaySurface() Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.display
}

func (b *softwareDeviceBackend) resolveTarget(target Surface) (*softwareSurface, error) {
	s, ok := target.(*softwareSurface)
	if !ok {
		return nil, fmt.Errorf("unsupported surface type %T", target)
	}
	if s.released {
		return nil, fmt.Errorf("surface %q already released", s.label)
	}
	return s, nil
}

func (b *softwareDeviceBackend) Clear(target Surface, c common.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.resolveTarget(target)
	if err != nil {
		return err
	}

	fill := color.RGBA{
		R: uint8(common.Clamp32(c.R, 0, 1) * 255),
		G: uint8(common.Clamp32(c.G, 0, 1) * 255),
		B: uint8(common.Clamp32(c.B, 0, 1) * 255),
		A: uint8(common.Clamp32(c.A, 0, 1) * 255),
	}
	draw.Draw(s.img, s.img.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)
	return nil
}

func (b *softwareDeviceBackend) DrawSprites(target Surface, viewProjection []float32, instances []SpriteInstance) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.resolveTarget(target)
	if err != nil {
		return err
	}
	if len(viewProjection) < 16 {
		return fmt.Errorf("view-projection matrix must have 16 elements, got %d", len(viewProjection))
	}

	drawSpritesCPU(s.img, viewProjection, instances)
	return nil
}

func (b *softwareDeviceBackend) ApplyFilter(program FilterProgram, input Texture, uniforms []byte, target Surface) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := program.(*softwareFilterProgram)
	if !ok || p.released {
		return fmt.Errorf("invalid or released filter program")
	}
	in, ok := input.(*softwareTexture)
	if !ok {
		return fmt.Errorf("unsupported texture type %T", input)
	}

	dst, err := b.resolveTarget(target)
	if err != nil {
		return err
	}

	src := b.scaled(in, dst.img.Bounds())
	if src == dst.img {
		// Kernels that sample neighborhoods must not read the buffer they
		// write; clone the source when input and target alias.
		clone := image.NewRGBA(src.Bounds())
		copy(clone.Pix, src.Pix)
		src = clone
	}
	p.kernel(dst.img, src, uniforms)
	return nil
}

func (b *softwareDeviceBackend) Blit(src Texture, dst Surface, mode FilterMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	in, ok := src.(*softwareTexture)
	if !ok {
		return fmt.Errorf("unsupported texture type %T", src)
	}
	target, err := b.resolveTarget(dst)
	if err != nil {
		return err
	}

	interp := interpolatorFor(mode)
	interp.Scale(target.img, target.img.Bounds(), in.img, in.img.Bounds(), xdraw.Src, nil)
	return nil
}

// scaled returns the input image resized to bounds, using the input's own
// sampling mode. Returns the input directly when no scaling is needed; scratch
// buffers are pooled in the LRU cache.
func (b *softwareDeviceBackend) scaled(in *softwareTexture, bounds image.Rectangle) *image.RGBA {
	if in.img.Bounds().Dx() == bounds.Dx() && in.img.Bounds().Dy() == bounds.Dy() {
		return in.img
	}

	key := fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy())
	scratch, ok := b.scratchCache.Get(key)
	if !ok {
		scratch = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		b.scratchCache.Add(key, scratch)
	}
	interpolatorFor(in.sampling).Scale(scratch, scratch.Bounds(), in.img, in.img.Bounds(), xdraw.Src, nil)
	return scratch
}

func interpolatorFor(mode FilterMode) xdraw.Interpolator {
	if mode == FilterLinear {
		return xdraw.BiLinear
	}
	return xdraw.NearestNeighbor
}

func (b *softwareDeviceBackend) Present() error {
	return nil
}

func (b *softwareDeviceBackend) Limits() Limits {
	return b.limits
}

func (b *softwareDeviceBackend) PurgeCaches() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	purged := b.scratchCache.Len()
	b.scratchCache.Purge()
	return purged
}

func (b *softwareDeviceBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	b.released = true
	b.scratchCache.Purge()
}
