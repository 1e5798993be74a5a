package metadata

import (
	"sync/atomic"
)

const (
	/** @brief Marks unused ids and generations. */
	InvalidID uint32 = 4294967295
	/** @brief The maximum number of mip levels any texture can have. */
	MaxTextureMipCount uint32 = 14
	/** @brief The maximum number of slices a texture array can aggregate. */
	MaxTextureArraySlices int = 512
)

/**
 * @brief The closed set of texture asset kinds. Query sites switch over
 * the kind instead of type-asserting concrete assets.
 */
type TextureKind int

const (
	/** @brief A standard two-dimensional texture. */
	TextureKind2D TextureKind = iota
	/** @brief Two-dimensional texture layers addressed by slice index. */
	TextureKind2DArray
	/** @brief A cube texture, used for cubemaps. */
	TextureKindCube
	/** @brief A three-dimensional texture. */
	TextureKindVolume
	/** @brief A writeable two-dimensional target. */
	TextureKindRenderTarget2D
	/** @brief A writeable cube target. */
	TextureKindRenderTargetCube
)

func (k TextureKind) String() string {
	switch k {
	case TextureKind2D:
		return "Texture2D"
	case TextureKind2DArray:
		return "Texture2DArray"
	case TextureKindCube:
		return "TextureCube"
	case TextureKindVolume:
		return "VolumeTexture"
	case TextureKindRenderTarget2D:
		return "TextureRenderTarget2D"
	case TextureKindRenderTargetCube:
		return "TextureRenderTargetCube"
	default:
		return "Unknown"
	}
}

/** @brief The value type a material expression sees when sampling a texture. */
type MaterialValueType int

const (
	MaterialValueTexture2D MaterialValueType = iota
	MaterialValueTexture2DArray
	MaterialValueTextureCube
	MaterialValueVolumeTexture
)

func (k TextureKind) MaterialValueType() MaterialValueType {
	switch k {
	case TextureKind2DArray:
		return MaterialValueTexture2DArray
	case TextureKindCube, TextureKindRenderTargetCube:
		return MaterialValueTextureCube
	case TextureKindVolume:
		return MaterialValueVolumeTexture
	default:
		return MaterialValueTexture2D
	}
}

// HasSlices reports whether a viewer should expose a slice selector.
func (k TextureKind) HasSlices() bool {
	switch k {
	case TextureKind2DArray, TextureKindVolume:
		return true
	default:
		return false
	}
}

// DefaultRepeat is the addressing used when sampling the kind without an explicit map.
// Arrays and cubes clamp; layers never wrap into each other.
func (k TextureKind) DefaultRepeat() TextureRepeat {
	switch k {
	case TextureKind2DArray, TextureKindCube, TextureKindRenderTargetCube, TextureKindVolume:
		return TextureRepeatClampToEdge
	default:
		return TextureRepeatRepeat
	}
}

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
	/** @brief Trilinear filtering with anisotropy. */
	TextureFilterModeAnisotropic TextureFilter = 0x2
)

// ParseTextureFilter maps the config names; unknown names are linear.
func ParseTextureFilter(name string) TextureFilter {
	switch name {
	case "nearest", "point":
		return TextureFilterModeNearest
	case "aniso", "anisotropic":
		return TextureFilterModeAnisotropic
	default:
		return TextureFilterModeLinear
	}
}

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

/** @brief How mips are generated when cooking. */
type MipGenSettings int

const (
	/** @brief Use the texture group's policy (full chain). */
	MipGenFromTextureGroup MipGenSettings = iota
	/** @brief Full chain down to 1x1. */
	MipGenSimpleAverage
	/** @brief Only the top level is cooked. */
	MipGenNoMipmaps
)

/** @brief Power-of-two padding policy for sources. */
type PowerOfTwoMode int

const (
	PowerOfTwoNone PowerOfTwoMode = iota
	PowerOfTwoPadToPowerOfTwo
	PowerOfTwoPadToSquarePowerOfTwo
)

/** @brief Which mips a memory size query covers. */
type TextureMipCount int

const (
	TextureMipCountResident TextureMipCount = iota
	TextureMipCountAllMips
	TextureMipCountAllMipsBiased
)

/**
 * @brief The stable handle material bindings hold. The render context swaps the
 * texture behind it; readers never see a released texture once Update(nil) returned.
 */
type TextureReference struct {
	texture    atomic.Pointer[GPUTexture]
	generation atomic.Uint32
}

// Update points the reference at texture, nil clears it.
// Must only be called from the render context.
func (r *TextureReference) Update(texture *GPUTexture) {
	r.texture.Store(texture)
	r.generation.Add(1)
}

// Texture returns the texture currently bound, or nil.
func (r *TextureReference) Texture() *GPUTexture {
	return r.texture.Load()
}

func (r *TextureReference) IsBound() bool {
	return r.texture.Load() != nil
}

// Generation is incremented on every Update.
func (r *TextureReference) Generation() uint32 {
	return r.generation.Load()
}
