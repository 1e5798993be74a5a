package systems

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// Aggregate merges mip 0 of every source into one buffer, slice i holding
// sources[i]. All sources must share width, height, mip count and format.
// An empty list yields the empty merged source and no error; any mismatch
// yields an error marked core.ErrIncompatibleSources and no partial result.
func Aggregate(sources []*metadata.SourceImage) (*metadata.MergedSource, error) {
	numSlices := len(sources)
	if numSlices == 0 {
		return metadata.EmptyMergedSource(), nil
	}
	if numSlices > metadata.MaxTextureArraySlices {
		err := errors.Wrapf(core.ErrTooManySlices, "%d sources, at most %d allowed", numSlices, metadata.MaxTextureArraySlices)
		return nil, errors.Mark(err, core.ErrIncompatibleSources)
	}

	ref := sources[0]
	if ref == nil {
		return nil, errors.Wrap(core.ErrIncompatibleSources, "slice 0 has no source texture")
	}
	if ref.Format.BytesPerPixel() == 0 || ref.Width == 0 || ref.Height == 0 {
		return nil, errors.Wrapf(core.ErrIncompatibleSources, "slice 0 (%s) has an invalid source %dx%d %s", ref.Name, ref.Width, ref.Height, ref.Format)
	}

	sliceSize := ref.MipSize(0)
	for i, src := range sources {
		if src == nil {
			return nil, errors.Wrapf(core.ErrIncompatibleSources, "slice %d has no source texture", i)
		}
		if src.Width != ref.Width || src.Height != ref.Height || src.NumMips != ref.NumMips || src.Format != ref.Format {
			return nil, errors.Wrapf(core.ErrIncompatibleSources,
				"slice %d (%s) is %dx%d, %d mips, %s; expected %dx%d, %d mips, %s",
				i, src.Name, src.Width, src.Height, src.NumMips, src.Format,
				ref.Width, ref.Height, ref.NumMips, ref.Format)
		}
		data, ok := src.MipData(0)
		if !ok || uint64(len(data)) < sliceSize {
			return nil, errors.Wrapf(core.ErrIncompatibleSources, "slice %d (%s) holds %d bytes of mip 0, %d expected", i, src.Name, len(data), sliceSize)
		}
	}

	merged := &metadata.MergedSource{
		Width:     ref.Width,
		Height:    ref.Height,
		NumSlices: uint32(numSlices),
		NumMips:   1,
		Format:    ref.Format,
		Data:      make([]byte, sliceSize*uint64(numSlices)),
	}
	for i, src := range sources {
		data, _ := src.MipData(0)
		copy(merged.Data[uint64(i)*sliceSize:uint64(i+1)*sliceSize], data[:sliceSize])
	}
	return merged, nil
}
