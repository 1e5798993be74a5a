package metadata

import (
	"github.com/gogpu/gputypes"
)

/** @brief Creation flags of a GPU texture. */
type TextureCreateFlags uint32

const (
	TextureCreateSRGB TextureCreateFlags = 1 << iota
	TextureCreateOfflineProcessed
	TextureCreateShaderResource
	TextureCreateNoTiling
)

func (f TextureCreateFlags) Has(flag TextureCreateFlags) bool {
	return f&flag != 0
}

/** @brief Describes a texture array to create on the GPU. */
type TextureArrayDescriptor struct {
	/** @brief Debug name. */
	Label string
	/** @brief Base mip width/height and layer count. */
	Size gputypes.Extent3D
	/** @brief Number of mips in the upload buffer for every layer. */
	MipLevelCount uint32
	Dimension     gputypes.TextureDimension
	Format        PixelFormat
	GPUFormat     gputypes.TextureFormat
	Usage         gputypes.TextureUsage
	Flags         TextureCreateFlags
}

/** @brief Describes a sampler state. */
type SamplerDescriptor struct {
	Label        string
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode
	Filter       TextureFilter
}

/** @brief A texture owned by the renderer backend. */
type GPUTexture struct {
	ID         uint32
	Descriptor TextureArrayDescriptor
	/** @brief A pointer to internal, render API-specific data. */
	InternalData interface{}
}

/** @brief A sampler owned by the renderer backend. */
type GPUSampler struct {
	ID           uint32
	Descriptor   SamplerDescriptor
	InternalData interface{}
}
