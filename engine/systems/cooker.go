package systems

import (
	"context"
	"encoding/binary"
	"image"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

/**
 * @brief Builds the cooked platform data of a texture array from its merged
 * source. Each slice gets its own mip chain; the chains are then stored
 * mip-major with every slice padded to the platform's bulk data alignment.
 */
type Cooker struct {
	alignment uint64
}

func NewCooker(alignment uint64) *Cooker {
	return &Cooker{
		alignment: math.Max(alignment, 1),
	}
}

// MipCount is the number of cooked mips for a source of the given size.
func MipCount(width, height uint32, mipGen metadata.MipGenSettings) uint32 {
	if width == 0 || height == 0 {
		return 0
	}
	if mipGen == metadata.MipGenNoMipmaps {
		return 1
	}
	return math.Min(math.FloorLog2(math.Max(width, height))+1, metadata.MaxTextureMipCount)
}

func (c *Cooker) Cook(ctx context.Context, source *metadata.MergedSource, mipGen metadata.MipGenSettings) (*metadata.PlatformData, error) {
	if !source.IsValid() {
		return nil, errors.Wrap(core.ErrNoMips, "cannot cook an empty source")
	}
	format := source.Format.PixelFormat()
	if format == metadata.PixelFormatUnknown {
		return nil, errors.Wrapf(core.ErrUnsupportedOnPlatform, "source format %s has no cooked format", source.Format)
	}
	numMips := MipCount(source.Width, source.Height, mipGen)
	chains := make([][][]byte, source.NumSlices)

	group, gctx := errgroup.WithContext(ctx)
	for slice := uint32(0); slice < source.NumSlices; slice++ {
		slice := slice
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chain, err := buildMipChain(source.Slice(slice), source.Width, source.Height, source.Format, numMips)
			if err != nil {
				return errors.Wrapf(err, "slice %d", slice)
			}
			chains[slice] = chain
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	pd := &metadata.PlatformData{
		SizeX:       source.Width,
		SizeY:       source.Height,
		NumSlices:   source.NumSlices,
		PixelFormat: format,
		Mips:        make([]metadata.MipMap, numMips),
	}
	for mip := uint32(0); mip < numMips; mip++ {
		sliceSize := metadata.CalcMipMapSize(source.Width, source.Height, format, mip)
		stride := math.GetAligned(sliceSize, c.alignment)
		bulk := make([]byte, stride*uint64(source.NumSlices))
		for slice := uint32(0); slice < source.NumSlices; slice++ {
			copy(bulk[uint64(slice)*stride:], chains[slice][mip])
		}
		pd.Mips[mip] = metadata.MipMap{
			SizeX:    math.Max(source.Width>>mip, 1),
			SizeY:    math.Max(source.Height>>mip, 1),
			BulkData: bulk,
		}
	}
	core.LogDebug("cooked %dx%dx%d %s with %d mips", pd.SizeX, pd.SizeY, pd.NumSlices, pd.PixelFormat, numMips)
	return pd, nil
}

func buildMipChain(top []byte, width, height uint32, format metadata.SourceFormat, numMips uint32) ([][]byte, error) {
	chain := make([][]byte, numMips)
	chain[0] = make([]byte, len(top))
	copy(chain[0], top)

	w, h := width, height
	for mip := uint32(1); mip < numMips; mip++ {
		nw, nh := math.Max(w/2, 1), math.Max(h/2, 1)
		next, err := downsample(chain[mip-1], w, h, nw, nh, format)
		if err != nil {
			return nil, err
		}
		chain[mip] = next
		w, h = nw, nh
	}
	return chain, nil
}

func downsample(src []byte, w, h, nw, nh uint32, format metadata.SourceFormat) ([]byte, error) {
	switch format {
	case metadata.SourceFormatG8:
		in := &image.Gray{Pix: src, Stride: int(w), Rect: image.Rect(0, 0, int(w), int(h))}
		out := image.NewGray(image.Rect(0, 0, int(nw), int(nh)))
		draw.BiLinear.Scale(out, out.Bounds(), in, in.Bounds(), draw.Src, nil)
		return out.Pix, nil
	case metadata.SourceFormatBGRA8, metadata.SourceFormatRGBA8, metadata.SourceFormatBGRE8, metadata.SourceFormatRGBE8:
		// Channels are filtered independently, so their order does not matter.
		in := &image.RGBA{Pix: src, Stride: int(w) * 4, Rect: image.Rect(0, 0, int(w), int(h))}
		out := image.NewRGBA(image.Rect(0, 0, int(nw), int(nh)))
		draw.BiLinear.Scale(out, out.Bounds(), in, in.Bounds(), draw.Src, nil)
		return out.Pix, nil
	case metadata.SourceFormatRGBA16:
		return boxFilter16(src, w, h, nw, nh), nil
	case metadata.SourceFormatRGBA16F:
		return pointSample(src, w, h, nw, nh, 8), nil
	default:
		return nil, errors.Wrapf(core.ErrUnsupportedOnPlatform, "cannot filter source format %s", format)
	}
}

// boxFilter16 averages 2x2 footprints of little-endian 16 bit RGBA texels.
func boxFilter16(src []byte, w, h, nw, nh uint32) []byte {
	const bpp = 8
	out := make([]byte, nw*nh*bpp)
	for y := uint32(0); y < nh; y++ {
		for x := uint32(0); x < nw; x++ {
			var sums [4]uint32
			samples := uint32(0)
			for dy := uint32(0); dy < 2; dy++ {
				for dx := uint32(0); dx < 2; dx++ {
					sx, sy := math.Min(x*2+dx, w-1), math.Min(y*2+dy, h-1)
					texel := src[(sy*w+sx)*bpp:]
					for c := 0; c < 4; c++ {
						sums[c] += uint32(binary.LittleEndian.Uint16(texel[c*2:]))
					}
					samples++
				}
			}
			dst := out[(y*nw+x)*bpp:]
			for c := 0; c < 4; c++ {
				binary.LittleEndian.PutUint16(dst[c*2:], uint16(sums[c]/samples))
			}
		}
	}
	return out
}

// pointSample keeps the top-left texel of every footprint.
func pointSample(src []byte, w, h, nw, nh uint32, bpp uint32) []byte {
	out := make([]byte, nw*nh*bpp)
	for y := uint32(0); y < nh; y++ {
		sy := math.Min(y*2, h-1)
		for x := uint32(0); x < nw; x++ {
			sx := math.Min(x*2, w-1)
			copy(out[(y*nw+x)*bpp:(y*nw+x+1)*bpp], src[(sy*w+sx)*bpp:])
		}
	}
	return out
}
