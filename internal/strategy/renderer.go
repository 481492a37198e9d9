// Package strategy hosts the interchangeable rendering backends and the
// selector that hot-swaps between them on live performance feedback.
package strategy

import (
	"sync"

	"github.com/vizstack/rendertune/internal/utils"
)

// Kind names a rendering backend. The set is closed: a module renders with
// Canvas2D or WebGL, nothing else.
type Kind string

const (
	KindCanvas2D Kind = "canvas2d"
	KindWebGL    Kind = "webgl"
)

// Context is a backend-specific drawing handle produced by the factory.
// Release frees whatever GPU or surface resources the handle owns.
type Context interface {
	Release()
}

// ContextFactory creates backend contexts. The page layer supplies the real
// factory; tests inject failing ones to exercise fallback paths.
type ContextFactory interface {
	CreateCanvas2D() (Context, error)
	CreateWebGL() (Context, error)
}

// Metrics reports a renderer's resource footprint and throughput.
type Metrics struct {
	Frames         int     `json:"frames"`
	AvgRenderMs    float64 `json:"avgRenderMs"`
	ShaderPrograms int     `json:"shaderPrograms"`
	Buffers        int     `json:"buffers"`
	Textures       int     `json:"textures"`
}

// Renderer is one active rendering backend bound to a canvas. A renderer is
// never mutated into another kind: switching destroys it and creates a
// replacement.
type Renderer interface {
	Name() Kind
	Initialize() error
	RecordRender(ms float64)
	Metrics() Metrics
	Cleanup()
}

// canvas2DRenderer is the broadly supported software path.
type canvas2DRenderer struct {
	factory ContextFactory

	mu      sync.Mutex
	ctx     Context
	frames  int
	totalMs float64
}

// NewCanvas2D constructs the Canvas2D backend. Initialize must succeed for
// rendering to proceed; Canvas2D has no further fallback.
func NewCanvas2D(factory ContextFactory) Renderer {
	return &canvas2DRenderer{factory: factory}
}

func (r *canvas2DRenderer) Name() Kind { return KindCanvas2D }

func (r *canvas2DRenderer) Initialize() error {
	ctx, err := r.factory.CreateCanvas2D()
	if err != nil {
		return utils.NewAppError("strategy.canvas2d", "context creation failed", err)
	}
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	return nil
}

func (r *canvas2DRenderer) RecordRender(ms float64) {
	if ms < 0 {
		return
	}
	r.mu.Lock()
	r.frames++
	r.totalMs += ms
	r.mu.Unlock()
}

func (r *canvas2DRenderer) Metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := Metrics{Frames: r.frames}
	if r.frames > 0 {
		m.AvgRenderMs = r.totalMs / float64(r.frames)
	}
	return m
}

func (r *canvas2DRenderer) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx != nil {
		r.ctx.Release()
		r.ctx = nil
	}
	r.frames = 0
	r.totalMs = 0
}

// webglRenderer is the GPU-accelerated path. Shader and buffer counts model
// the resources the backend owns for its lifetime; they exist so conflict
// detection can attribute GPU pressure per module.
type webglRenderer struct {
	factory  ContextFactory
	programs int
	buffers  int
	textures int

	mu      sync.Mutex
	ctx     Context
	frames  int
	totalMs float64
}

// WebGLResources describes the GPU allocations a module's WebGL backend
// requires.
type WebGLResources struct {
	ShaderPrograms int
	Buffers        int
	Textures       int
}

// NewWebGL constructs the WebGL backend with the given resource plan.
func NewWebGL(factory ContextFactory, res WebGLResources) Renderer {
	return &webglRenderer{
		factory:  factory,
		programs: res.ShaderPrograms,
		buffers:  res.Buffers,
		textures: res.Textures,
	}
}

func (r *webglRenderer) Name() Kind { return KindWebGL }

func (r *webglRenderer) Initialize() error {
	ctx, err := r.factory.CreateWebGL()
	if err != nil {
		return utils.NewAppError("strategy.webgl", "context creation failed", err)
	}
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	return nil
}

func (r *webglRenderer) RecordRender(ms float64) {
	if ms < 0 {
		return
	}
	r.mu.Lock()
	r.frames++
	r.totalMs += ms
	r.mu.Unlock()
}

func (r *webglRenderer) Metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := Metrics{
		Frames:         r.frames,
		ShaderPrograms: r.programs,
		Buffers:        r.buffers,
		Textures:       r.textures,
	}
	if r.frames > 0 {
		m.AvgRenderMs = r.totalMs / float64(r.frames)
	}
	return m
}

func (r *webglRenderer) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx != nil {
		r.ctx.Release()
		r.ctx = nil
	}
	r.frames = 0
	r.totalMs = 0
}
