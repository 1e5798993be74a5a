package systems

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

/**
 * @brief Staging memory for one texture array upload. Cooked mips arrive
 * mip-major (every slice of mip m together) and leave slice-major (the full
 * mip chain of slice 0, then slice 1, ...), which is the order the GPU
 * upload consumes.
 */
type ArrayBulkData struct {
	firstMip  uint32
	numSlices uint32
	mipData   [metadata.MaxTextureMipCount][]byte
	mipSize   [metadata.MaxTextureMipCount]uint64
}

func NewArrayBulkData(firstMip, numSlices uint32) *ArrayBulkData {
	return &ArrayBulkData{
		firstMip:  firstMip,
		numSlices: numSlices,
	}
}

/**
 * @brief Copies mips [firstMip, NumMips) out of the cooked platform data.
 * The size recorded for each mip is the larger of the stored buffer and the
 * size computed from the format, so padded bulk data is never truncated and
 * short bulk data is never over-read.
 */
func (b *ArrayBulkData) LoadMips(pd *metadata.PlatformData) bool {
	if pd == nil || pd.NumMips() > metadata.MaxTextureMipCount {
		return false
	}
	var loaded [metadata.MaxTextureMipCount][]byte
	if !pd.TryLoadMips(b.firstMip, loaded[:]) {
		return false
	}
	for mip := b.firstMip; mip < pd.NumMips(); mip++ {
		computed := metadata.CalcMipMapSize(pd.SizeX, pd.SizeY, pd.PixelFormat, mip) * uint64(b.numSlices)
		b.mipData[mip] = loaded[mip]
		b.mipSize[mip] = math.Max(uint64(len(loaded[mip])), computed)
	}
	return true
}

// setMip is used when the mip chain does not come from platform data.
func (b *ArrayBulkData) setMip(mip uint32, data []byte, computed uint64) {
	b.mipData[mip] = data
	b.mipSize[mip] = math.Max(uint64(len(data)), computed)
}

/**
 * @brief Reorders mips [firstMip, numMips) into one slice-major buffer held
 * as the first mip. A chain holding a single mip is left as is, padded with
 * zeroes up to its recorded size.
 */
func (b *ArrayBulkData) MergeMips(numMips uint32) error {
	if b.numSlices == 0 {
		return errors.WithAssertionFailure(errors.Wrap(core.ErrInvalidMipBias, "texture array has no slices"))
	}
	if b.firstMip >= numMips || numMips > metadata.MaxTextureMipCount {
		err := errors.Wrapf(core.ErrInvalidMipBias, "first mip %d, mip count %d", b.firstMip, numMips)
		return errors.WithAssertionFailure(err)
	}

	var sliceSize [metadata.MaxTextureMipCount]uint64
	mergedSize := uint64(0)
	for mip := b.firstMip; mip < numMips; mip++ {
		sliceSize[mip] = b.mipSize[mip] / uint64(b.numSlices)
		mergedSize += sliceSize[mip] * uint64(b.numSlices)
	}

	if mergedSize <= b.mipSize[b.firstMip] {
		b.mipData[b.firstMip] = padTo(b.mipData[b.firstMip], b.mipSize[b.firstMip])
		return nil
	}

	merged := make([]byte, mergedSize)
	pos := uint64(0)
	for slice := uint64(0); slice < uint64(b.numSlices); slice++ {
		for mip := b.firstMip; mip < numMips; mip++ {
			size := sliceSize[mip]
			src := b.mipData[mip]
			offset := slice * size
			if offset < uint64(len(src)) {
				end := math.Min(offset+size, uint64(len(src)))
				copy(merged[pos:pos+size], src[offset:end])
			}
			pos += size
		}
	}

	b.Discard()
	b.mipData[b.firstMip] = merged
	b.mipSize[b.firstMip] = mergedSize
	return nil
}

// Data is the upload buffer once MergeMips has run.
func (b *ArrayBulkData) Data() []byte {
	return b.mipData[b.firstMip]
}

func (b *ArrayBulkData) Size() uint64 {
	return b.mipSize[b.firstMip]
}

// Discard releases every staged mip.
func (b *ArrayBulkData) Discard() {
	for i := range b.mipData {
		b.mipData[i] = nil
		b.mipSize[i] = 0
	}
}

func padTo(data []byte, size uint64) []byte {
	if uint64(len(data)) >= size {
		return data
	}
	padded := make([]byte, size)
	copy(padded, data)
	return padded
}

/**
 * @brief Builds the upload buffer for a mip chain. chain is indexed by mip
 * and holds every slice of that mip, slice after slice; entries below
 * firstMip are ignored. The result holds, for each slice in order, mips
 * [firstMip, len(chain)) of that slice.
 */
func PlanAndMerge(chain [][]byte, firstMip, numSlices, sizeX, sizeY uint32, format metadata.PixelFormat) ([]byte, error) {
	numMips := uint32(len(chain))
	if numMips > metadata.MaxTextureMipCount {
		return nil, errors.WithAssertionFailure(errors.Newf("mip chain of %d levels exceeds %d", numMips, metadata.MaxTextureMipCount))
	}
	bulk := NewArrayBulkData(firstMip, numSlices)
	for mip := firstMip; mip < numMips; mip++ {
		bulk.setMip(mip, chain[mip], metadata.CalcMipMapSize(sizeX, sizeY, format, mip)*uint64(numSlices))
	}
	if err := bulk.MergeMips(numMips); err != nil {
		return nil, err
	}
	return bulk.Data(), nil
}
