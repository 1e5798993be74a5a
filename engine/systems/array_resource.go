package systems

import (
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type ResourceState int32

const (
	ResourceUninitialized ResourceState = iota
	ResourceInitializing
	ResourceReady
	ResourceDestroyed
)

func (s ResourceState) String() string {
	switch s {
	case ResourceUninitialized:
		return "uninitialized"
	case ResourceInitializing:
		return "initializing"
	case ResourceReady:
		return "ready"
	case ResourceDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("ResourceState(%d)", int32(s))
	}
}

/** @brief Everything an ArrayResource snapshots from its asset at creation. */
type ArrayResourceParams struct {
	Name         string
	PlatformData *metadata.PlatformData
	MipBias      uint32
	SRGB         bool
	NoTiling     bool
	Filter       metadata.TextureFilter
	LODGroup     string
	// TextureSize is the byte size accounted in the memory stats while the resource lives.
	TextureSize int64
	Reference   *metadata.TextureReference
}

/**
 * @brief The GPU side of a texture array asset. Created on the edit side,
 * initialized and destroyed only by render commands.
 */
type ArrayResource struct {
	name        string
	sizeX       uint32
	sizeY       uint32
	sizeZ       uint32
	numMips     uint32
	firstMip    uint32
	pixelFormat metadata.PixelFormat
	flags       metadata.TextureCreateFlags
	filter      metadata.TextureFilter
	lodGroup    string
	textureSize int64
	reference   *metadata.TextureReference

	bulk  *ArrayBulkData
	state atomic.Int32

	// Render thread only.
	accounted bool
	texture   *metadata.GPUTexture
	sampler   *metadata.GPUSampler
}

func NewArrayResource(params ArrayResourceParams) (*ArrayResource, error) {
	pd := params.PlatformData
	numMips := pd.NumMips()
	if numMips == 0 || numMips > metadata.MaxTextureMipCount {
		return nil, errors.WithAssertionFailure(errors.Wrapf(core.ErrNoMips, "'%s' has %d cooked mips", params.Name, numMips))
	}
	if params.MipBias >= numMips {
		err := errors.Wrapf(core.ErrInvalidMipBias, "'%s': mip bias %d with %d mips", params.Name, params.MipBias, numMips)
		return nil, errors.WithAssertionFailure(err)
	}

	flags := metadata.TextureCreateOfflineProcessed | metadata.TextureCreateShaderResource
	if params.SRGB {
		flags |= metadata.TextureCreateSRGB
	}
	if params.NoTiling {
		flags |= metadata.TextureCreateNoTiling
	}

	res := &ArrayResource{
		name:        params.Name,
		sizeX:       pd.SizeX,
		sizeY:       pd.SizeY,
		sizeZ:       pd.NumSlices,
		numMips:     numMips,
		firstMip:    params.MipBias,
		pixelFormat: pd.PixelFormat,
		flags:       flags,
		filter:      params.Filter,
		lodGroup:    params.LODGroup,
		textureSize: params.TextureSize,
		reference:   params.Reference,
		bulk:        NewArrayBulkData(params.MipBias, pd.NumSlices),
	}
	if !res.bulk.LoadMips(pd) {
		return nil, errors.Wrapf(core.ErrNoMips, "'%s' cooked mips %d..%d hold no data", params.Name, params.MipBias, numMips-1)
	}
	return res, nil
}

/**
 * @brief Uploads the texture array. Render thread only. On success the memory
 * stats are incremented, the texture reference points at the new texture and
 * a clamped sampler exists. On failure nothing is left allocated or accounted
 * and the resource is destroyed.
 */
func (res *ArrayResource) Initialize(r *renderer.Renderer) error {
	if !res.state.CompareAndSwap(int32(ResourceUninitialized), int32(ResourceInitializing)) {
		return errors.Wrapf(core.ErrResourceState, "'%s' cannot initialize from state %s", res.name, res.State())
	}

	if err := res.bulk.MergeMips(res.numMips); err != nil {
		res.fail()
		return err
	}

	desc := &metadata.TextureArrayDescriptor{
		Label: res.name,
		Size: gputypes.Extent3D{
			Width:              res.EffectiveWidth(),
			Height:             res.EffectiveHeight(),
			DepthOrArrayLayers: res.sizeZ,
		},
		MipLevelCount: res.numMips - res.firstMip,
		Dimension:     gputypes.TextureDimension2D,
		Format:        res.pixelFormat,
		GPUFormat:     res.pixelFormat.Info().GPUFormat,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		Flags:         res.flags,
	}
	texture, err := r.TextureArrayCreate(desc, res.bulk.Data())
	res.bulk.Discard()
	if err != nil {
		res.fail()
		return errors.Wrapf(err, "creating texture array '%s'", res.name)
	}
	res.texture = texture

	core.MemoryStatsTextureInc(res.lodGroup, res.textureSize)
	res.accounted = true

	if res.reference != nil {
		res.reference.Update(texture)
	}

	sampler, err := r.SamplerCreate(&metadata.SamplerDescriptor{
		Label:        res.name,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		Filter:       res.filter,
	})
	if err != nil {
		res.release(r)
		res.state.Store(int32(ResourceDestroyed))
		return errors.Wrapf(err, "creating sampler for '%s'", res.name)
	}
	res.sampler = sampler

	res.state.Store(int32(ResourceReady))
	core.LogDebug("texture array '%s' initialized: %dx%dx%d, mips %d..%d, %s",
		res.name, desc.Size.Width, desc.Size.Height, res.sizeZ, res.firstMip, res.numMips-1, res.pixelFormat)
	return nil
}

func (res *ArrayResource) fail() {
	res.bulk.Discard()
	res.state.Store(int32(ResourceDestroyed))
}

/**
 * @brief Releases the GPU objects. Render thread only. Destroying twice, or
 * destroying a resource that never initialized, is a no-op.
 */
func (res *ArrayResource) Destroy(r *renderer.Renderer) error {
	prev := ResourceState(res.state.Swap(int32(ResourceDestroyed)))
	if prev == ResourceDestroyed {
		return nil
	}
	if prev == ResourceUninitialized {
		res.bulk.Discard()
		return nil
	}
	return res.release(r)
}

func (res *ArrayResource) release(r *renderer.Renderer) error {
	if res.accounted {
		core.MemoryStatsTextureDec(res.lodGroup, res.textureSize)
		res.accounted = false
	}
	if res.reference != nil && res.texture != nil && res.reference.Texture() == res.texture {
		res.reference.Update(nil)
	}
	var errs error
	if res.texture != nil {
		errs = errors.CombineErrors(errs, r.TextureDestroy(res.texture))
		res.texture = nil
	}
	if res.sampler != nil {
		errs = errors.CombineErrors(errs, r.SamplerDestroy(res.sampler))
		res.sampler = nil
	}
	return errs
}

func (res *ArrayResource) State() ResourceState {
	return ResourceState(res.state.Load())
}

func (res *ArrayResource) Name() string {
	return res.name
}

// EffectiveWidth is the width of the first resident mip.
func (res *ArrayResource) EffectiveWidth() uint32 {
	return math.Max(res.sizeX>>res.firstMip, 1)
}

// EffectiveHeight is the height of the first resident mip.
func (res *ArrayResource) EffectiveHeight() uint32 {
	return math.Max(res.sizeY>>res.firstMip, 1)
}

func (res *ArrayResource) SizeZ() uint32 {
	return res.sizeZ
}

func (res *ArrayResource) FirstResidentMip() uint32 {
	return res.firstMip
}

func (res *ArrayResource) ResidentMipCount() uint32 {
	return res.numMips - res.firstMip
}

func (res *ArrayResource) TotalMipCount() uint32 {
	return res.numMips
}

func (res *ArrayResource) TextureSize() int64 {
	return res.textureSize
}

func (res *ArrayResource) Flags() metadata.TextureCreateFlags {
	return res.flags
}

// Texture and Sampler are meant for render commands; other readers go through the reference.
func (res *ArrayResource) Texture() *metadata.GPUTexture {
	return res.texture
}

func (res *ArrayResource) Sampler() *metadata.GPUSampler {
	return res.sampler
}
