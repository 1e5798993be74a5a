package renderer

import "github.com/spaghettifunk/anima/engine/renderer/metadata"

// RendererBackend is implemented by every graphics API the engine can drive.
// All methods are called from the render thread only.
type RendererBackend interface {
	Initialize(appName string) error
	Shutdown() error
	Capabilities() metadata.PlatformCapabilities
	TextureArrayCreate(desc *metadata.TextureArrayDescriptor, data []byte) (*metadata.GPUTexture, error)
	TextureDestroy(texture *metadata.GPUTexture) error
	SamplerCreate(desc *metadata.SamplerDescriptor) (*metadata.GPUSampler, error)
	SamplerDestroy(sampler *metadata.GPUSampler) error
}
