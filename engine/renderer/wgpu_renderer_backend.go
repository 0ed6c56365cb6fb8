package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

const (
	// uniformStride is the ring slot size; every uniform block must fit in one slot.
	// Dynamic offsets must be multiples of 256.
	uniformStride = 8192

	// defaultUniformSlots bounds the draws per frame.
	defaultUniformSlots = 1024

	// defaultShadowMapSize is the edge length of the depth texture depth passes render to.
	defaultShadowMapSize = 2048

	shadowDepthFormat = wgpu.TextureFormatDepth32Float
	mainDepthFormat   = wgpu.TextureFormatDepth24Plus
)

// ErrUniformRingFull is returned when a frame issues more draws than the uniform ring holds.
var ErrUniformRingFull = errors.New("renderer: uniform ring full")

type pipelineKey struct {
	mode    Mode
	winding model.Winding
}

// wgpuProgram is a compiled shader plus the pipelines created for it on demand.
type wgpuProgram struct {
	shader        shader.Shader
	module        *wgpu.ShaderModule
	uniformLayout *wgpu.BindGroupLayout
	textureLayout *wgpu.BindGroupLayout
	layout        *wgpu.PipelineLayout
	uniformGroup  *wgpu.BindGroup
	pipelines     map[pipelineKey]*wgpu.RenderPipeline
	textureGroups map[string]*wgpu.BindGroup
}

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type wgpuDeviceImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	clearColor    wgpu.Color
	width, height uint32

	depthTexture  *wgpuTexture
	shadowTexture *wgpuTexture
	shadowMapSize uint32

	buffers    map[uint32]*wgpu.Buffer
	nextBuffer uint32

	programs    map[shader.ProgramID]*wgpuProgram
	nextProgram shader.ProgramID

	textures    map[shader.TextureID]*wgpuTexture
	nextTexture shader.TextureID
	white       shader.TextureID
	sampler     *wgpu.Sampler

	uniformRing  *wgpu.Buffer
	uniformSlots uint64
	uniformNext  uint64

	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	encoder      *wgpu.CommandEncoder
	pass         *wgpu.RenderPassEncoder
	passMode     Mode
	colorPasses  int

	current      *wgpuProgram
	boundUnits   map[uint32]shader.TextureID
	pipelineSet  *wgpu.RenderPipeline
	textureGroup *wgpu.BindGroup

	forceFallbackAdapter bool
	logger               *zap.Logger
}

var _ Device = &wgpuDeviceImpl{}

// NewWGPUDevice creates a WebGPU device rendering to the surface described by descriptor.
// Must be called from the thread that owns the window.
//
// Parameters:
//   - descriptor: the platform surface, see window.Window.SurfaceDescriptor
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//   - options: functional options for present mode, adapter choice and logging
//
// Returns:
//   - Device: the device
//   - error: an error if no adapter or device could be acquired
func NewWGPUDevice(descriptor *wgpu.SurfaceDescriptor, width, height int, options ...WGPUDeviceOption) (Device, error) {
	runtime.LockOSThread()
	d := &wgpuDeviceImpl{
		mu:            &sync.Mutex{},
		instance:      wgpu.CreateInstance(nil),
		presentMode:   wgpu.PresentModeFifo,
		clearColor:    wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
		shadowMapSize: defaultShadowMapSize,
		uniformSlots:  defaultUniformSlots,
		buffers:       make(map[uint32]*wgpu.Buffer),
		programs:      make(map[shader.ProgramID]*wgpuProgram),
		textures:      make(map[shader.TextureID]*wgpuTexture),
		boundUnits:    make(map[uint32]shader.TextureID),
		logger:        zap.NewNop(),
	}
	for _, option := range options {
		option(d)
	}
	d.surface = d.instance.CreateSurface(descriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	if err := d.init(width, height); err != nil {
		d.Release()
		return nil, err
	}
	return d, nil
}

// init creates the resources that live as long as the device.
func (d *wgpuDeviceImpl) init(width, height int) error {
	ring, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Uniform Ring",
		Size:  uniformStride * d.uniformSlots,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("uniform ring: %w", err)
	}
	d.uniformRing = ring

	d.sampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Diffuse Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("sampler: %w", err)
	}

	d.white, err = d.uploadTexture("white", common.TextureStagingData{Pixels: []byte{255, 255, 255, 255}, Width: 1, Height: 1})
	if err != nil {
		return err
	}

	d.shadowTexture, err = d.createDepthTexture("Shadow Map", d.shadowMapSize, d.shadowMapSize, shadowDepthFormat)
	if err != nil {
		return err
	}

	return d.configure(width, height)
}

// configure (re)configures the surface and the main depth buffer. Caller must hold the mutex
// or be in construction.
func (d *wgpuDeviceImpl) configure(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("surface reports no formats")
	}
	d.surfaceFormat = capabilities.Formats[0]
	d.width, d.height = uint32(width), uint32(height)

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       d.width,
		Height:      d.height,
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if d.depthTexture != nil {
		d.depthTexture.release()
	}
	depth, err := d.createDepthTexture("Depth Texture", d.width, d.height, mainDepthFormat)
	if err != nil {
		return err
	}
	d.depthTexture = depth
	return nil
}

func (d *wgpuDeviceImpl) createDepthTexture(label string, width, height uint32, format wgpu.TextureFormat) (*wgpuTexture, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%s view: %w", label, err)
	}
	return &wgpuTexture{texture: tex, view: view}, nil
}

func (t *wgpuTexture) release() {
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

func (d *wgpuDeviceImpl) UploadMesh(m *model.Mesh) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(m.Vertices) == 0 {
		return fmt.Errorf("mesh %s: no vertices", m.Name)
	}
	vb, err := d.createBuffer(m.Name+" Vertex Buffer", m.VertexData(), wgpu.BufferUsageVertex)
	if err != nil {
		return err
	}
	var ib uint32
	if m.Indexed() {
		ib, err = d.createBuffer(m.Name+" Index Buffer", m.IndexData(), wgpu.BufferUsageIndex)
		if err != nil {
			d.releaseBuffer(vb)
			return err
		}
	}
	m.MarkUploaded(vb, ib)
	return nil
}

func (d *wgpuDeviceImpl) createBuffer(label string, data []byte, usage wgpu.BufferUsage) (uint32, error) {
	// Buffer sizes must be multiples of 4.
	size := (uint64(len(data)) + 3) &^ 3
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", label, err)
	}
	if uint64(len(data)) != size {
		data = append(data[:len(data):len(data)], make([]byte, size-uint64(len(data)))...)
	}
	d.queue.WriteBuffer(buf, 0, data)
	d.nextBuffer++
	d.buffers[d.nextBuffer] = buf
	return d.nextBuffer, nil
}

func (d *wgpuDeviceImpl) releaseBuffer(id uint32) {
	if buf, ok := d.buffers[id]; ok {
		buf.Release()
		delete(d.buffers, id)
	}
}

func (d *wgpuDeviceImpl) ReleaseMesh(m *model.Mesh) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !m.Uploaded() {
		return
	}
	vb, ib := m.Buffers()
	d.releaseBuffer(vb)
	d.releaseBuffer(ib)
	m.MarkReleased()
}

func (d *wgpuDeviceImpl) CreateProgram(s shader.Shader) (shader.ProgramID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout := s.Layout()
	if layout.Size > uniformStride {
		return shader.NoProgram, fmt.Errorf("shader %s: uniform block of %d bytes exceeds %d", s.Name(), layout.Size, uniformStride)
	}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Name(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return shader.NoProgram, fmt.Errorf("shader %s: %w", s.Name(), err)
	}

	p := &wgpuProgram{
		shader:        s,
		module:        module,
		pipelines:     make(map[pipelineKey]*wgpu.RenderPipeline),
		textureGroups: make(map[string]*wgpu.BindGroup),
	}

	p.uniformLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: s.Name() + " Uniforms",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   layout.Size,
			},
		}},
	})
	if err != nil {
		return shader.NoProgram, fmt.Errorf("shader %s uniform layout: %w", s.Name(), err)
	}
	groups := []*wgpu.BindGroupLayout{p.uniformLayout}

	if slots := s.TextureSlots(); len(slots) > 0 {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(slots))
		for _, slot := range slots {
			entry := wgpu.BindGroupLayoutEntry{Binding: slot.Binding, Visibility: wgpu.ShaderStageFragment}
			if slot.Sampler {
				entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
			} else {
				entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
				entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
			}
			entries = append(entries, entry)
		}
		p.textureLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   s.Name() + " Textures",
			Entries: entries,
		})
		if err != nil {
			return shader.NoProgram, fmt.Errorf("shader %s texture layout: %w", s.Name(), err)
		}
		groups = append(groups, p.textureLayout)
	}

	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            s.Name(),
		BindGroupLayouts: groups,
	})
	if err != nil {
		return shader.NoProgram, fmt.Errorf("shader %s pipeline layout: %w", s.Name(), err)
	}

	p.uniformGroup, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  s.Name() + " Uniforms",
		Layout: p.uniformLayout,
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  d.uniformRing,
			Offset:  0,
			Size:    layout.Size,
		}},
	})
	if err != nil {
		return shader.NoProgram, fmt.Errorf("shader %s uniform group: %w", s.Name(), err)
	}

	d.nextProgram++
	d.programs[d.nextProgram] = p
	s.Attach(d.nextProgram, d)
	return d.nextProgram, nil
}

// pipeline returns the render pipeline of p for the current pass mode and the mesh winding,
// creating it on first use. Caller must hold the mutex.
func (d *wgpuDeviceImpl) pipeline(p *wgpuProgram, winding model.Winding) (*wgpu.RenderPipeline, error) {
	key := pipelineKey{mode: d.passMode, winding: winding}
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}

	frontFace := wgpu.FrontFaceCCW
	if winding == model.WindingCW {
		frontFace = wgpu.FrontFaceCW
	}
	desc := &wgpu.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s %s Render Pipeline", p.shader.Name(), d.passMode),
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: p.shader.VertexEntry(),
			Buffers:    []wgpu.VertexBufferLayout{vertexBufferLayout()},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: frontFace,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            mainDepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	}
	if d.passMode == ModeDepth {
		// Front-face culling reduces self-shadowing in the light's depth map.
		desc.Primitive.CullMode = wgpu.CullModeFront
		desc.DepthStencil.Format = shadowDepthFormat
	} else {
		entry := p.shader.FragmentEntry()
		if entry == "" {
			return nil, fmt.Errorf("shader %s has no fragment entry for a regular pass", p.shader.Name())
		}
		desc.Fragment = &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: entry,
			Targets: []wgpu.ColorTargetState{{
				Format:    d.surfaceFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		}
	}

	rp, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("shader %s pipeline: %w", p.shader.Name(), err)
	}
	p.pipelines[key] = rp
	return rp, nil
}

// vertexBufferLayout describes model.Vertex to the pipeline.
func vertexBufferLayout() wgpu.VertexBufferLayout {
	attrs := make([]wgpu.VertexAttribute, 0, len(model.VertexAttributes))
	for _, a := range model.VertexAttributes {
		var format wgpu.VertexFormat
		switch {
		case a.Integer:
			format = wgpu.VertexFormatUint32x4
		case a.Components == 2:
			format = wgpu.VertexFormatFloat32x2
		case a.Components == 3:
			format = wgpu.VertexFormatFloat32x3
		default:
			format = wgpu.VertexFormatFloat32x4
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         format,
			Offset:         a.Offset,
			ShaderLocation: a.Location,
		})
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: model.VertexSize,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

func (d *wgpuDeviceImpl) UseProgram(id shader.ProgramID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.programs[id]
	if !ok {
		return fmt.Errorf("program %d: %w", id, ErrUnknownProgram)
	}
	d.current = p
	d.pipelineSet = nil
	d.textureGroup = nil
	clear(d.boundUnits)
	return nil
}

func (d *wgpuDeviceImpl) BindTexture(unit uint32, texture shader.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		return fmt.Errorf("bind texture: %w", ErrUnknownProgram)
	}
	if _, ok := d.textures[texture]; texture != 0 && !ok {
		return fmt.Errorf("texture %d not uploaded", texture)
	}
	d.boundUnits[unit] = texture
	d.textureGroup = nil
	return nil
}

func (d *wgpuDeviceImpl) UploadTexture(name string, data common.TextureStagingData) (shader.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploadTexture(name, data)
}

func (d *wgpuDeviceImpl) uploadTexture(name string, data common.TextureStagingData) (shader.TextureID, error) {
	if int(data.Width)*int(data.Height)*4 != len(data.Pixels) {
		return 0, fmt.Errorf("texture %s: %dx%d does not match %d bytes", name, data.Width, data.Height, len(data.Pixels))
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     name + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("texture %s: %w", name, err)
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("texture %s view: %w", name, err)
	}
	d.nextTexture++
	d.textures[d.nextTexture] = &wgpuTexture{texture: tex, view: view}
	return d.nextTexture, nil
}

func (d *wgpuDeviceImpl) BeginFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	d.frameSurface = surfaceTexture
	d.frameView = view
	d.encoder = encoder
	d.uniformNext = 0
	d.colorPasses = 0
	return nil
}

func (d *wgpuDeviceImpl) BeginPass(name string, mode Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		return ErrNoFrame
	}
	if d.pass != nil {
		return fmt.Errorf("pass %s: a pass is still open", name)
	}

	var desc *wgpu.RenderPassDescriptor
	if mode == ModeDepth {
		desc = &wgpu.RenderPassDescriptor{
			Label: name,
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            d.shadowTexture.view,
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1.0,
			},
		}
	} else {
		// The first color pass of a frame clears; later ones draw over it.
		loadOp := wgpu.LoadOpLoad
		if d.colorPasses == 0 {
			loadOp = wgpu.LoadOpClear
		}
		d.colorPasses++
		desc = &wgpu.RenderPassDescriptor{
			Label: name,
			ColorAttachments: []wgpu.RenderPassColorAttachment{{
				View:       d.frameView,
				LoadOp:     loadOp,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: d.clearColor,
			}},
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            d.depthTexture.view,
				DepthLoadOp:     loadOp,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1.0,
			},
		}
	}
	d.pass = d.encoder.BeginRenderPass(desc)
	d.passMode = mode
	// A new pass encoder has no state bound.
	d.pipelineSet = nil
	d.textureGroup = nil
	return nil
}

func (d *wgpuDeviceImpl) EndPass() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pass == nil {
		return ErrNoPass
	}
	err := d.pass.End()
	d.pass = nil
	return err
}

func (d *wgpuDeviceImpl) DrawIndexed(m *model.Mesh) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.prepareDraw(m); err != nil {
		return err
	}
	_, ib := m.Buffers()
	d.pass.SetIndexBuffer(d.buffers[ib], wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	d.pass.DrawIndexed(uint32(len(m.Indices)), 1, 0, 0, 0)
	return nil
}

func (d *wgpuDeviceImpl) DrawArrays(m *model.Mesh) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.prepareDraw(m); err != nil {
		return err
	}
	d.pass.Draw(uint32(len(m.Vertices)), 1, 0, 0)
	return nil
}

// prepareDraw sets the pipeline, copies the staged uniforms into the next ring slot and binds
// the vertex buffer and texture group. Caller must hold the mutex.
func (d *wgpuDeviceImpl) prepareDraw(m *model.Mesh) error {
	if d.pass == nil {
		return ErrNoPass
	}
	if d.current == nil {
		return fmt.Errorf("draw %s: %w", m.Name, ErrUnknownProgram)
	}
	if !m.Uploaded() {
		return fmt.Errorf("draw %s: %w", m.Name, ErrMeshNotUploaded)
	}
	if d.uniformNext >= d.uniformSlots {
		return fmt.Errorf("draw %s: %w", m.Name, ErrUniformRingFull)
	}

	rp, err := d.pipeline(d.current, m.Winding)
	if err != nil {
		return err
	}
	if rp != d.pipelineSet {
		d.pass.SetPipeline(rp)
		d.pipelineSet = rp
		d.textureGroup = nil
	}

	offset := d.uniformNext * uniformStride
	d.uniformNext++
	d.queue.WriteBuffer(d.uniformRing, offset, d.current.shader.Uniforms())
	d.pass.SetBindGroup(0, d.current.uniformGroup, []uint32{uint32(offset)})

	if d.current.textureLayout != nil {
		group, err := d.textureBindGroup(d.current)
		if err != nil {
			return err
		}
		if group != d.textureGroup {
			d.pass.SetBindGroup(1, group, nil)
			d.textureGroup = group
		}
	}

	vb, _ := m.Buffers()
	d.pass.SetVertexBuffer(0, d.buffers[vb], 0, wgpu.WholeSize)
	return nil
}

// textureBindGroup returns the bind group for the program's currently bound texture units,
// creating and caching it on first use. Caller must hold the mutex.
func (d *wgpuDeviceImpl) textureBindGroup(p *wgpuProgram) (*wgpu.BindGroup, error) {
	slots := p.shader.TextureSlots()
	ids := make([]shader.TextureID, 0, len(slots))
	unit := uint32(0)
	for _, slot := range slots {
		if slot.Sampler {
			continue
		}
		id := d.boundUnits[unit]
		if id == 0 {
			id = d.white
		}
		ids = append(ids, id)
		unit++
	}
	key := fmt.Sprint(ids)
	if g, ok := p.textureGroups[key]; ok {
		return g, nil
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(slots))
	next := 0
	for _, slot := range slots {
		if slot.Sampler {
			entries = append(entries, wgpu.BindGroupEntry{Binding: slot.Binding, Sampler: d.sampler})
			continue
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: slot.Binding, TextureView: d.textures[ids[next]].view})
		next++
	}
	g, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.shader.Name() + " Textures",
		Layout:  p.textureLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("shader %s texture group: %w", p.shader.Name(), err)
	}
	p.textureGroups[key] = g
	return g, nil
}

func (d *wgpuDeviceImpl) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		return ErrNoFrame
	}
	defer d.releaseFrame()
	if d.pass != nil {
		return errors.New("end frame: a pass is still open")
	}

	commandBuffer, err := d.encoder.Finish(nil)
	if err != nil {
		return err
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	d.surface.Present()
	return nil
}

// releaseFrame drops the per-frame encoder and surface references. Caller must hold the mutex.
func (d *wgpuDeviceImpl) releaseFrame() {
	if d.encoder != nil {
		d.encoder.Release()
		d.encoder = nil
	}
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameSurface != nil {
		d.frameSurface.Release()
		d.frameSurface = nil
	}
}

func (d *wgpuDeviceImpl) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.configure(width, height); err != nil {
		d.logger.Error("resize failed", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
	}
}

func (d *wgpuDeviceImpl) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseFrame()
	for _, p := range d.programs {
		for _, rp := range p.pipelines {
			rp.Release()
		}
		for _, g := range p.textureGroups {
			g.Release()
		}
		p.uniformGroup.Release()
		p.layout.Release()
		if p.textureLayout != nil {
			p.textureLayout.Release()
		}
		p.uniformLayout.Release()
		p.module.Release()
	}
	clear(d.programs)
	for _, t := range d.textures {
		t.release()
	}
	clear(d.textures)
	for id := range d.buffers {
		d.releaseBuffer(id)
	}
	if d.depthTexture != nil {
		d.depthTexture.release()
	}
	if d.shadowTexture != nil {
		d.shadowTexture.release()
	}
	if d.sampler != nil {
		d.sampler.Release()
	}
	if d.uniformRing != nil {
		d.uniformRing.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}
