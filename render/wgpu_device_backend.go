package render

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/cogentcore/webgpu/wgpu"
	lru "github.com/hashicorp/golang-lru/v2"
)

// spriteInstanceGPU mirrors the SpriteInstance struct in sprite.wgsl.
// 48 bytes, 16-byte aligned for storage buffer access.
type spriteInstanceGPU struct {
	Pos   [2]float32
	Size  [2]float32
	Color [4]float32
	Z     float32
	_pad  [3]float32
}

// spriteGlobalsGPU mirrors the SpriteGlobals uniform struct in sprite.wgsl.
type spriteGlobalsGPU struct {
	ViewProj [16]float32
}

// wgpuTexture is the Texture handle for the WGPU backend. It carries the view
// and the sampling mode chosen when the owning surface was created.
type wgpuTexture struct {
	view     *wgpu.TextureView
	size     common.Viewport
	sampling FilterMode
}

func (t *wgpuTexture) Size() common.Viewport {
	return t.size
}

// wgpuSurface is an off-screen render target backed by a wgpu texture.
type wgpuSurface struct {
	label    string
	tex      *wgpu.Texture
	view     *wgpu.TextureView
	size     common.Viewport
	format   PixelFormat
	sampling FilterMode
	released bool
}

func (s *wgpuSurface) Size() common.Viewport {
	return s.size
}

func (s *wgpuSurface) Format() PixelFormat {
	return s.format
}

func (s *wgpuSurface) Texture() Texture {
	return &wgpuTexture{view: s.view, size: s.size, sampling: s.sampling}
}

func (s *wgpuSurface) Released() bool {
	return s.released
}

func (s *wgpuSurface) Release() {
	if s.released {
		return
	}
	s.released = true
	if s.view != nil {
		s.view.Release()
		s.view = nil
	}
	if s.tex != nil {
		s.tex.Release()
		s.tex = nil
	}
}

// wgpuDisplaySurface is the presentable swapchain surface. Its texture cannot
// be sampled; it is only ever a filter/blit target.
type wgpuDisplaySurface struct {
	b *wgpuDeviceBackend
}

func (s *wgpuDisplaySurface) Size() common.Viewport {
	return s.b.displaySize
}

func (s *wgpuDisplaySurface) Format() PixelFormat {
	return s.b.displayFormat
}

// Texture returns nil: the swapchain texture is write-only from this
// subsystem's perspective.
func (s *wgpuDisplaySurface) Texture() Texture {
	return nil
}

func (s *wgpuDisplaySurface) Released() bool {
	return s.b.released
}

// Release is a no-op; the display surface belongs to the device.
func (s *wgpuDisplaySurface) Release() {}

// wgpuFilterProgram is a compiled WGSL filter module.
type wgpuFilterProgram struct {
	key      string
	source   string
	module   *wgpu.ShaderModule
	released bool
}

func (p *wgpuFilterProgram) Key() string {
	return p.key
}

func (p *wgpuFilterProgram) Source() string {
	return p.source
}

func (p *wgpuFilterProgram) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}

// wgpuDeviceBackend implements Device on top of cogentcore/webgpu.
type wgpuDeviceBackend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	displayFormat PixelFormat
	displaySize   common.Viewport
	display       *wgpuDisplaySurface

	// The swapchain texture acquired lazily on the first display-targeting
	// draw of a frame, held until Present.
	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView

	// Shared bind group layouts, created once.
	filterBGL *wgpu.BindGroupLayout // texture + sampler + uniform block
	blitBGL   *wgpu.BindGroupLayout // texture + sampler
	spriteBGL *wgpu.BindGroupLayout // globals uniform + instance storage

	blitModule   *wgpu.ShaderModule
	spriteModule *wgpu.ShaderModule

	// pipelineCache holds built render pipelines keyed by kind+program+format.
	// Evicted or purged entries release their GPU pipeline and are rebuilt on
	// next use.
	pipelineCache *lru.Cache[string, *wgpu.RenderPipeline]
	samplerCache  map[FilterMode]*wgpu.Sampler

	limits   Limits
	released bool
}

var _ Device = &wgpuDeviceBackend{}

// newWGPUDeviceBackend creates the WGPU backend: instance, surface, adapter,
// device, queue, shared layouts, and internal shader modules. Panics on
// construction failure, matching the engine's renderer backend behavior;
// runtime faults after construction are returned as errors.
func newWGPUDeviceBackend(viewport common.Viewport, cfg *deviceConfig) *wgpuDeviceBackend {
	runtime.LockOSThread()
	b := &wgpuDeviceBackend{
		mu:           &sync.Mutex{},
		instance:     wgpu.CreateInstance(nil),
		samplerCache: make(map[FilterMode]*wgpu.Sampler),
	}
	b.display = &wgpuDisplaySurface{b: b}
	b.surface = b.instance.CreateSurface(cfg.surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "PostFX Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = device
	b.queue = device.GetQueue()

	supported := adapter.GetLimits()
	b.limits = Limits{
		MaxTextureSize:    int(supported.Limits.MaxTextureDimension2D),
		MaxTextureUnits:   int(supported.Limits.MaxSampledTexturesPerShaderStage),
		MaxVaryingVectors: int(supported.Limits.MaxInterStageShaderComponents) / 4,
		FloatTextures:     true,
		Renderer:          "wgpu-native (" + runtime.GOOS + "/" + runtime.GOARCH + ")",
	}

	cache, err := lru.NewWithEvict(cfg.cacheSize, func(_ string, p *wgpu.RenderPipeline) {
		p.Release()
	})
	if err != nil {
		panic(err)
	}
	b.pipelineCache = cache

	b.createBindGroupLayouts()
	b.createInternalModules()
	b.ConfigureDisplay(viewport.Width, viewport.Height)

	return b
}

// createBindGroupLayouts builds the three shared layouts used by every
// filter, blit, and sprite pipeline.
func (b *wgpuDeviceBackend) createBindGroupLayouts() {
	var err error

	b.filterBGL, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Filter Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	b.blitBGL, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Blit Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	b.spriteBGL, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Sprite Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeReadOnlyStorage,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}
}

// createInternalModules compiles the device's own blit and sprite shaders.
func (b *wgpuDeviceBackend) createInternalModules() {
	var err error
	b.blitModule, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Blit Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: blitShaderSrc,
		},
	})
	if err != nil {
		panic(err)
	}
	b.spriteModule, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Sprite Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: spriteShaderSrc,
		},
	})
	if err != nil {
		panic(err)
	}
}

func pixelFormatToWGPU(f PixelFormat) wgpu.TextureFormat {
	switch f {
	case FormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case FormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float
	case FormatRGBA8Unorm:
		fallthrough
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func wgpuFormatToPixel(f wgpu.TextureFormat) PixelFormat {
	switch f {
	case wgpu.TextureFormatBGRA8Unorm:
		return FormatBGRA8Unorm
	case wgpu.TextureFormatRGBA16Float:
		return FormatRGBA16Float
	case wgpu.TextureFormatRGBA32Float:
		return FormatRGBA32Float
	default:
		return FormatRGBA8Unorm
	}
}

func (b *wgpuDeviceBackend) CompileFilter(key, source string) (FilterProgram, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter %q: %w", key, err)
	}

	p := &wgpuFilterProgram{key: key, source: source, module: module}

	// Build the pipeline for the default format eagerly so validation errors
	// surface at compile time rather than on the first frame.
	if _, err := b.filterPipeline(p, wgpu.TextureFormatRGBA8Unorm); err != nil {
		p.Release()
		return nil, fmt.Errorf("failed to validate filter %q: %w", key, err)
	}

	return p, nil
}

func (b *wgpuDeviceBackend) CreateSurface(opts SurfaceOptions) (Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid surface dimensions %dx%d", opts.Width, opts.Height)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: common.Coalesce(opts.Label, "PostFX Surface"),
		Size: wgpu.Extent3D{
			Width:              uint32(opts.Width),
			Height:             uint32(opts.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        pixelFormatToWGPU(opts.Format),
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %dx%d surface: %w", opts.Width, opts.Height, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	return &wgpuSurface{
		label:    opts.Label,
		tex:      tex,
		view:     view,
		size:     common.Viewport{Width: opts.Width, Height: opts.Height},
		format:   opts.Format,
		sampling: opts.Sampling,
	}, nil
}

func (b *wgpuDeviceBackend) ConfigureDisplay(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]
	b.displayFormat = wgpuFormatToPixel(b.surfaceFormat)

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.displaySize = common.Viewport{Width: width, Height: height}
}

func (b *wgpuDeviceBackend) DisplaySurface() Surface {
	return b.display
}

// acquireTargetView resolves a Surface to a texture view and format. Display
// targets acquire the swapchain texture once per frame; it is held until
// Present.
func (b *wgpuDeviceBackend) acquireTargetView(target Surface) (*wgpu.TextureView, wgpu.TextureFormat, error) {
	switch s := target.(type) {
	case *wgpuSurface:
		if s.released {
			return nil, 0, fmt.Errorf("surface %q already released", s.label)
		}
		return s.view, pixelFormatToWGPU(s.format), nil
	case *wgpuDisplaySurface:
		if b.frameView == nil {
			tex, err := b.surface.GetCurrentTexture()
			if err != nil {
				return nil, 0, fmt.Errorf("failed to acquire swapchain texture: %w", err)
			}
			view, err := tex.CreateView(nil)
			if err != nil {
				tex.Release()
				return nil, 0, err
			}
			b.frameTexture = tex
			b.frameView = view
		}
		return b.frameView, b.surfaceFormat, nil
	default:
		return nil, 0, fmt.Errorf("unsupported surface type %T", target)
	}
}

// sampler returns a cached sampler for the given filter mode, creating it on
// first use (or after a purge).
func (b *wgpuDeviceBackend) sampler(mode FilterMode) (*wgpu.Sampler, error) {
	if s, ok := b.samplerCache[mode]; ok {
		return s, nil
	}
	filter := wgpu.FilterModeNearest
	label := "Nearest Sampler"
	if mode == FilterLinear {
		filter = wgpu.FilterModeLinear
		label = "Linear Sampler"
	}
	s, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	b.samplerCache[mode] = s
	return s, nil
}

// filterPipeline returns a cached fullscreen pipeline for the program and
// target format, building it on a cache miss.
func (b *wgpuDeviceBackend) filterPipeline(p *wgpuFilterProgram, format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	key := fmt.Sprintf("filter/%s/%d", p.key, format)
	if cached, ok := b.pipelineCache.Get(key); ok {
		return cached, nil
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.key,
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.filterBGL},
	})
	if err != nil {
		return nil, err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.key + " Filter Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	b.pipelineCache.Add(key, created)
	return created, nil
}

// blitPipeline returns a cached blit pipeline for the target format.
func (b *wgpuDeviceBackend) blitPipeline(format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	key := fmt.Sprintf("blit/%d", format)
	if cached, ok := b.pipelineCache.Get(key); ok {
		return cached, nil
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Blit",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.blitBGL},
	})
	if err != nil {
		return nil, err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Blit Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     b.blitModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     b.blitModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	b.pipelineCache.Add(key, created)
	return created, nil
}

// spritePipeline returns a cached sprite pipeline for the target format.
func (b *wgpuDeviceBackend) spritePipeline(format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	key := fmt.Sprintf("sprite/%d", format)
	if cached, ok := b.pipelineCache.Get(key); ok {
		return cached, nil
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Sprite",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.spriteBGL},
	})
	if err != nil {
		return nil, err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Sprite Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     b.spriteModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     b.spriteModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleStrip,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	b.pipelineCache.Add(key, created)
	return created, nil
}

func (b *wgpuDeviceBackend) Clear(target Surface, color common.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	view, _, err := b.acquireTargetView(target)
	if err != nil {
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(color.R), G: float64(color.G), B: float64(color.B), A: float64(color.A),
				},
			},
		},
	})
	pass.End()

	return b.finish(encoder)
}

func (b *wgpuDeviceBackend) DrawSprites(target Surface, viewProjection []float32, instances []SpriteInstance) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(instances) == 0 {
		return nil
	}
	if len(viewProjection) < 16 {
		return fmt.Errorf("view-projection matrix must have 16 elements, got %d", len(viewProjection))
	}

	view, format, err := b.acquireTargetView(target)
	if err != nil {
		return err
	}

	pipe, err := b.spritePipeline(format)
	if err != nil {
		return err
	}

	// Back-to-front so later instances composite on top.
	sorted := make([]SpriteInstance, len(instances))
	copy(sorted, instances)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Z < sorted[j].Z })

	gpuInstances := make([]spriteInstanceGPU, len(sorted))
	for i, inst := range sorted {
		gpuInstances[i] = spriteInstanceGPU{
			Pos:   [2]float32{inst.X, inst.Y},
			Size:  [2]float32{inst.W, inst.H},
			Color: [4]float32{inst.Color.R, inst.Color.G, inst.Color.B, inst.Color.A},
			Z:     inst.Z,
		}
	}

	var globals spriteGlobalsGPU
	copy(globals.ViewProj[:], viewProjection[:16])

	globalsBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Sprite Globals",
		Size:  uint64(len(common.StructToBytes(&globals))),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	defer globalsBuf.Release()
	b.queue.WriteBuffer(globalsBuf, 0, common.StructToBytes(&globals))

	instanceData := common.SliceToBytes(gpuInstances)
	instanceBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Sprite Instances",
		Size:  uint64(len(instanceData)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	defer instanceBuf.Release()
	b.queue.WriteBuffer(instanceBuf, 0, instanceData)

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Sprite Bind Group",
		Layout: b.spriteBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: globalsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: instanceBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(pipe)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(4, uint32(len(gpuInstances)), 0, 0)
	pass.End()

	return b.finish(encoder)
}

func (b *wgpuDeviceBackend) ApplyFilter(program FilterProgram, input Texture, uniforms []byte, target Surface) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := program.(*wgpuFilterProgram)
	if !ok || p.released {
		return fmt.Errorf("invalid or released filter program")
	}
	in, ok := input.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("unsupported texture type %T", input)
	}

	view, format, err := b.acquireTargetView(target)
	if err != nil {
		return err
	}

	pipe, err := b.filterPipeline(p, format)
	if err != nil {
		return err
	}

	samp, err := b.sampler(in.sampling)
	if err != nil {
		return err
	}

	// Uniform buffer sizes must be 16-byte aligned.
	size := (uint64(len(uniforms)) + 15) &^ 15
	uniformBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.key + " Uniforms",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	defer uniformBuf.Release()
	if len(uniforms) > 0 {
		b.queue.WriteBuffer(uniformBuf, 0, uniforms)
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  p.key + " Bind Group",
		Layout: b.filterBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: in.view},
			{Binding: 1, Sampler: samp},
			{Binding: 2, Buffer: uniformBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(pipe)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	return b.finish(encoder)
}

func (b *wgpuDeviceBackend) Blit(src Texture, dst Surface, mode FilterMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	in, ok := src.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("unsupported texture type %T", src)
	}

	view, format, err := b.acquireTargetView(dst)
	if err != nil {
		return err
	}

	pipe, err := b.blitPipeline(format)
	if err != nil {
		return err
	}

	samp, err := b.sampler(mode)
	if err != nil {
		return err
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Blit Bind Group",
		Layout: b.blitBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: in.view},
			{Binding: 1, Sampler: samp},
		},
	})
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(pipe)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	return b.finish(encoder)
}

// finish submits the encoder's commands to the queue and releases transient
// command resources.
func (b *wgpuDeviceBackend) finish(encoder *wgpu.CommandEncoder) error {
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()
	return nil
}

func (b *wgpuDeviceBackend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameTexture == nil {
		return nil
	}
	b.surface.Present()
	b.frameView.Release()
	b.frameTexture.Release()
	b.frameView = nil
	b.frameTexture = nil
	return nil
}

func (b *wgpuDeviceBackend) Limits() Limits {
	return b.limits
}

func (b *wgpuDeviceBackend) PurgeCaches() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	purged := b.pipelineCache.Len() + len(b.samplerCache)
	b.pipelineCache.Purge()
	for mode, s := range b.samplerCache {
		s.Release()
		delete(b.samplerCache, mode)
	}
	return purged
}

func (b *wgpuDeviceBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	b.released = true

	b.pipelineCache.Purge()
	for _, s := range b.samplerCache {
		s.Release()
	}
	b.samplerCache = map[FilterMode]*wgpu.Sampler{}

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameTexture != nil {
		b.frameTexture.Release()
		b.frameTexture = nil
	}
	if b.blitModule != nil {
		b.blitModule.Release()
	}
	if b.spriteModule != nil {
		b.spriteModule.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
}
