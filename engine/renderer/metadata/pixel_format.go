package metadata

import (
	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima/engine/math"
)

/** @brief GPU pixel formats a cooked texture can be stored in. */
type PixelFormat uint8

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatG8
	PixelFormatB8G8R8A8
	PixelFormatR8G8B8A8
	PixelFormatA16B16G16R16
	PixelFormatFloatRGBA
	PixelFormatDXT1
	PixelFormatDXT5
	PixelFormatBC4
	PixelFormatBC5
	PixelFormatASTC4x4
	PixelFormatETC2RGB
	pixelFormatCount
)

/**
 * @brief Static description of a pixel format. Uncompressed formats use 1x1 blocks
 * so BlockBytes is the size of a single texel.
 */
type PixelFormatInfo struct {
	Name       string
	BlockSizeX uint32
	BlockSizeY uint32
	BlockBytes uint32
	Supported  bool
	/** @brief The WebGPU-style format, TextureFormatUndefined when there is no direct match. */
	GPUFormat gputypes.TextureFormat
}

var pixelFormats = [pixelFormatCount]PixelFormatInfo{
	PixelFormatUnknown:      {Name: "PF_Unknown", GPUFormat: gputypes.TextureFormatUndefined},
	PixelFormatG8:           {Name: "PF_G8", BlockSizeX: 1, BlockSizeY: 1, BlockBytes: 1, Supported: true, GPUFormat: gputypes.TextureFormatR8Unorm},
	PixelFormatB8G8R8A8:     {Name: "PF_B8G8R8A8", BlockSizeX: 1, BlockSizeY: 1, BlockBytes: 4, Supported: true, GPUFormat: gputypes.TextureFormatBGRA8Unorm},
	PixelFormatR8G8B8A8:     {Name: "PF_R8G8B8A8", BlockSizeX: 1, BlockSizeY: 1, BlockBytes: 4, Supported: true, GPUFormat: gputypes.TextureFormatRGBA8Unorm},
	PixelFormatA16B16G16R16: {Name: "PF_A16B16G16R16", BlockSizeX: 1, BlockSizeY: 1, BlockBytes: 8, Supported: true, GPUFormat: gputypes.TextureFormatUndefined},
	PixelFormatFloatRGBA:    {Name: "PF_FloatRGBA", BlockSizeX: 1, BlockSizeY: 1, BlockBytes: 8, Supported: true, GPUFormat: gputypes.TextureFormatUndefined},
	PixelFormatDXT1:         {Name: "PF_DXT1", BlockSizeX: 4, BlockSizeY: 4, BlockBytes: 8, Supported: true, GPUFormat: gputypes.TextureFormatUndefined},
	PixelFormatDXT5:         {Name: "PF_DXT5", BlockSizeX: 4, BlockSizeY: 4, BlockBytes: 16, Supported: true, GPUFormat: gputypes.TextureFormatUndefined},
	PixelFormatBC4:          {Name: "PF_BC4", BlockSizeX: 4, BlockSizeY: 4, BlockBytes: 8, Supported: true, GPUFormat: gputypes.TextureFormatUndefined},
	PixelFormatBC5:          {Name: "PF_BC5", BlockSizeX: 4, BlockSizeY: 4, BlockBytes: 16, Supported: true, GPUFormat: gputypes.TextureFormatUndefined},
	PixelFormatASTC4x4:      {Name: "PF_ASTC_4x4", BlockSizeX: 4, BlockSizeY: 4, BlockBytes: 16, Supported: true, GPUFormat: gputypes.TextureFormatUndefined},
	PixelFormatETC2RGB:      {Name: "PF_ETC2_RGB", BlockSizeX: 4, BlockSizeY: 4, BlockBytes: 8, Supported: true, GPUFormat: gputypes.TextureFormatUndefined},
}

// Info returns the static description of the format. Out of range values
// describe PF_Unknown.
func (pf PixelFormat) Info() PixelFormatInfo {
	if pf >= pixelFormatCount {
		return pixelFormats[PixelFormatUnknown]
	}
	return pixelFormats[pf]
}

func (pf PixelFormat) String() string {
	return pf.Info().Name
}

// IsCompressed reports whether the format stores texels in blocks larger than one texel.
func (pf PixelFormat) IsCompressed() bool {
	return pf.Info().BlockSizeX > 1
}

// IsGreyScale reports single channel formats that a preview should splat to grey.
func (pf PixelFormat) IsGreyScale() bool {
	return pf == PixelFormatG8 || pf == PixelFormatBC4
}

// ParsePixelFormat returns the format with the given "PF_" name.
func ParsePixelFormat(name string) (PixelFormat, bool) {
	for i := PixelFormat(0); i < pixelFormatCount; i++ {
		if pixelFormats[i].Name == name {
			return i, true
		}
	}
	return PixelFormatUnknown, false
}

// CalcMipMapSize returns the number of bytes one slice of the given mip occupies,
// rounded up to whole blocks.
func CalcMipMapSize(sizeX, sizeY uint32, format PixelFormat, mipIndex uint32) uint64 {
	info := format.Info()
	if info.BlockBytes == 0 {
		return 0
	}
	width := math.Max(sizeX>>mipIndex, 1)
	height := math.Max(sizeY>>mipIndex, 1)
	blocksX := uint64(math.DivideAndRoundUp(width, info.BlockSizeX))
	blocksY := uint64(math.DivideAndRoundUp(height, info.BlockSizeY))
	return blocksX * blocksY * uint64(info.BlockBytes)
}

// CalcMipMapExtent returns the texel extent of a mip, never smaller than one block.
func CalcMipMapExtent(sizeX, sizeY uint32, format PixelFormat, mipIndex uint32) (uint32, uint32) {
	info := format.Info()
	return math.Max(sizeX>>mipIndex, math.Max(info.BlockSizeX, 1)),
		math.Max(sizeY>>mipIndex, math.Max(info.BlockSizeY, 1))
}

/** @brief Pixel formats of editor-side source images. */
type SourceFormat uint8

const (
	SourceFormatInvalid SourceFormat = iota
	SourceFormatG8
	SourceFormatBGRA8
	SourceFormatBGRE8
	SourceFormatRGBA16
	SourceFormatRGBA16F
	SourceFormatRGBA8
	SourceFormatRGBE8
)

func (sf SourceFormat) String() string {
	switch sf {
	case SourceFormatG8:
		return "TSF_G8"
	case SourceFormatBGRA8:
		return "TSF_BGRA8"
	case SourceFormatBGRE8:
		return "TSF_BGRE8"
	case SourceFormatRGBA16:
		return "TSF_RGBA16"
	case SourceFormatRGBA16F:
		return "TSF_RGBA16F"
	case SourceFormatRGBA8:
		return "TSF_RGBA8"
	case SourceFormatRGBE8:
		return "TSF_RGBE8"
	default:
		return "TSF_Invalid"
	}
}

// BytesPerPixel returns the size of one source texel, 0 for the invalid format.
func (sf SourceFormat) BytesPerPixel() uint32 {
	switch sf {
	case SourceFormatG8:
		return 1
	case SourceFormatBGRA8, SourceFormatBGRE8, SourceFormatRGBA8, SourceFormatRGBE8:
		return 4
	case SourceFormatRGBA16, SourceFormatRGBA16F:
		return 8
	default:
		return 0
	}
}

// PixelFormat returns the uncompressed GPU format the cooker stores this source as.
func (sf SourceFormat) PixelFormat() PixelFormat {
	switch sf {
	case SourceFormatG8:
		return PixelFormatG8
	case SourceFormatBGRA8, SourceFormatBGRE8, SourceFormatRGBE8:
		return PixelFormatB8G8R8A8
	case SourceFormatRGBA8:
		return PixelFormatR8G8B8A8
	case SourceFormatRGBA16:
		return PixelFormatA16B16G16R16
	case SourceFormatRGBA16F:
		return PixelFormatFloatRGBA
	default:
		return PixelFormatUnknown
	}
}
