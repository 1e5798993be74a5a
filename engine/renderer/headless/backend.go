// Package headless is a renderer backend that keeps textures in system memory.
// It validates every request the way a GPU driver would and is used by tools,
// servers and tests that run without a device.
package headless

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type texture struct {
	desc metadata.TextureArrayDescriptor
	data []byte
}

type Backend struct {
	caps metadata.PlatformCapabilities

	mutex       sync.Mutex
	initialized bool
	nextID      uint32
	textures    map[uint32]*texture
	samplers    map[uint32]metadata.SamplerDescriptor
	failCreate  error
}

func New(caps metadata.PlatformCapabilities) *Backend {
	return &Backend{
		caps:     caps,
		textures: make(map[uint32]*texture),
		samplers: make(map[uint32]metadata.SamplerDescriptor),
	}
}

func (b *Backend) Initialize(appName string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.initialized = true
	core.LogDebug("headless backend initialized for '%s'", appName)
	return nil
}

func (b *Backend) Shutdown() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.textures = make(map[uint32]*texture)
	b.samplers = make(map[uint32]metadata.SamplerDescriptor)
	b.initialized = false
	return nil
}

func (b *Backend) Capabilities() metadata.PlatformCapabilities {
	return b.caps
}

// FailTextureCreate makes the next TextureArrayCreate call return err.
func (b *Backend) FailTextureCreate(err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.failCreate = err
}

func (b *Backend) TextureArrayCreate(desc *metadata.TextureArrayDescriptor, data []byte) (*metadata.GPUTexture, error) {
	if desc == nil {
		return nil, errors.New("headless: nil texture descriptor")
	}
	if err := b.validate(desc, data); err != nil {
		return nil, err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.failCreate != nil {
		err := b.failCreate
		b.failCreate = nil
		return nil, err
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	b.nextID++
	id := b.nextID
	b.textures[id] = &texture{desc: *desc, data: stored}

	return &metadata.GPUTexture{
		ID:           id,
		Descriptor:   *desc,
		InternalData: b,
	}, nil
}

func (b *Backend) validate(desc *metadata.TextureArrayDescriptor, data []byte) error {
	switch {
	case desc.Dimension != gputypes.TextureDimension2D:
		return errors.Newf("headless: texture arrays must be 2D, got dimension %v", desc.Dimension)
	case desc.Size.Width == 0 || desc.Size.Height == 0:
		return errors.Newf("headless: invalid size %dx%d", desc.Size.Width, desc.Size.Height)
	case desc.Size.DepthOrArrayLayers == 0:
		return errors.New("headless: texture array needs at least one layer")
	case b.caps.MaxArrayLayers > 0 && desc.Size.DepthOrArrayLayers > b.caps.MaxArrayLayers:
		return errors.Newf("headless: %d layers exceeds device limit of %d", desc.Size.DepthOrArrayLayers, b.caps.MaxArrayLayers)
	case desc.MipLevelCount == 0 || desc.MipLevelCount > metadata.MaxTextureMipCount:
		return errors.Newf("headless: invalid mip count %d", desc.MipLevelCount)
	case !b.caps.CanCreateTextureArray(desc.Format):
		return errors.Newf("headless: format %s not supported on %s", desc.Format, b.caps.ShaderPlatform)
	}

	expected := ExpectedUploadSize(desc)
	if uint64(len(data)) < expected {
		return errors.Newf("headless: upload buffer holds %d bytes, %d required", len(data), expected)
	}
	return nil
}

// ExpectedUploadSize is the smallest upload buffer a descriptor can be created from.
func ExpectedUploadSize(desc *metadata.TextureArrayDescriptor) uint64 {
	var size uint64
	for mip := uint32(0); mip < desc.MipLevelCount; mip++ {
		size += metadata.CalcMipMapSize(desc.Size.Width, desc.Size.Height, desc.Format, mip)
	}
	return size * uint64(desc.Size.DepthOrArrayLayers)
}

func (b *Backend) TextureDestroy(t *metadata.GPUTexture) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if _, ok := b.textures[t.ID]; !ok {
		return errors.Newf("headless: texture %d does not exist", t.ID)
	}
	delete(b.textures, t.ID)
	return nil
}

func (b *Backend) SamplerCreate(desc *metadata.SamplerDescriptor) (*metadata.GPUSampler, error) {
	if desc == nil {
		return nil, errors.New("headless: nil sampler descriptor")
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.nextID++
	b.samplers[b.nextID] = *desc
	return &metadata.GPUSampler{ID: b.nextID, Descriptor: *desc, InternalData: b}, nil
}

func (b *Backend) SamplerDestroy(s *metadata.GPUSampler) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if _, ok := b.samplers[s.ID]; !ok {
		return errors.Newf("headless: sampler %d does not exist", s.ID)
	}
	delete(b.samplers, s.ID)
	return nil
}

// SliceChain returns a copy of every mip of one layer as uploaded, most detailed first.
func (b *Backend) SliceChain(id uint32, slice uint32) ([]byte, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	t, ok := b.textures[id]
	if !ok || slice >= t.desc.Size.DepthOrArrayLayers {
		return nil, false
	}
	stride := len(t.data) / int(t.desc.Size.DepthOrArrayLayers)
	out := make([]byte, stride)
	copy(out, t.data[int(slice)*stride:])
	return out, true
}

func (b *Backend) TextureCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.textures)
}

func (b *Backend) SamplerCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.samplers)
}
