package renderer

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/headless"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type RendererType uint8

const (
	Headless RendererType = iota
	Vulkan
	DirectX
	Metal
	OpenGL
)

func (t RendererType) String() string {
	switch t {
	case Headless:
		return "headless"
	case Vulkan:
		return "vulkan"
	case DirectX:
		return "directx"
	case Metal:
		return "metal"
	case OpenGL:
		return "opengl"
	default:
		return "unknown"
	}
}

// Renderer is the front-end the render thread talks to. It forwards to the
// backend and keeps track of live objects so leaks are reported on shutdown.
type Renderer struct {
	backend      RendererBackend
	liveTextures atomic.Int64
	liveSamplers atomic.Int64
}

// New creates a renderer for the given backend type.
func New(rendererType RendererType, caps metadata.PlatformCapabilities) (*Renderer, error) {
	switch rendererType {
	case Headless:
		return NewWithBackend(headless.New(caps)), nil
	default:
		return nil, errors.Newf("renderer backend %s is not available in this build", rendererType)
	}
}

// NewWithBackend wraps an already constructed backend.
func NewWithBackend(backend RendererBackend) *Renderer {
	return &Renderer{backend: backend}
}

func (r *Renderer) Initialize(appName string) error {
	if err := r.backend.Initialize(appName); err != nil {
		return errors.Wrap(err, "initializing renderer backend")
	}
	caps := r.backend.Capabilities()
	core.LogInfo("renderer initialized for %s (texture arrays: %v, max layers: %d)", caps.ShaderPlatform, caps.SupportsTexture2DArray, caps.MaxArrayLayers)
	return nil
}

func (r *Renderer) Shutdown() error {
	if n := r.liveTextures.Load(); n != 0 {
		core.LogWarn("renderer shutting down with %d live textures", n)
	}
	if n := r.liveSamplers.Load(); n != 0 {
		core.LogWarn("renderer shutting down with %d live samplers", n)
	}
	return r.backend.Shutdown()
}

func (r *Renderer) Capabilities() metadata.PlatformCapabilities {
	return r.backend.Capabilities()
}

func (r *Renderer) TextureArrayCreate(desc *metadata.TextureArrayDescriptor, data []byte) (*metadata.GPUTexture, error) {
	texture, err := r.backend.TextureArrayCreate(desc, data)
	if err != nil {
		return nil, err
	}
	r.liveTextures.Add(1)
	return texture, nil
}

func (r *Renderer) TextureDestroy(texture *metadata.GPUTexture) error {
	if texture == nil {
		return nil
	}
	if err := r.backend.TextureDestroy(texture); err != nil {
		return err
	}
	r.liveTextures.Add(-1)
	return nil
}

func (r *Renderer) SamplerCreate(desc *metadata.SamplerDescriptor) (*metadata.GPUSampler, error) {
	sampler, err := r.backend.SamplerCreate(desc)
	if err != nil {
		return nil, err
	}
	r.liveSamplers.Add(1)
	return sampler, nil
}

func (r *Renderer) SamplerDestroy(sampler *metadata.GPUSampler) error {
	if sampler == nil {
		return nil
	}
	if err := r.backend.SamplerDestroy(sampler); err != nil {
		return err
	}
	r.liveSamplers.Add(-1)
	return nil
}

func (r *Renderer) LiveTextures() int64 {
	return r.liveTextures.Load()
}

func (r *Renderer) LiveSamplers() int64 {
	return r.liveSamplers.Load()
}

// Backend exposes the wrapped backend, mostly for tests and tools.
func (r *Renderer) Backend() RendererBackend {
	return r.backend
}
