package metadata

/** @brief One cooked mip level holding every slice, slice after slice. */
type MipMap struct {
	SizeX uint32
	SizeY uint32
	/** @brief May be larger than the computed size because of per-slice alignment. */
	BulkData []byte
}

/**
 * @brief Cooked data of a texture for one platform. Mips are stored mip-major:
 * Mips[m].BulkData holds mip m of slice 0, then slice 1, and so on.
 */
type PlatformData struct {
	SizeX       uint32
	SizeY       uint32
	NumSlices   uint32
	PixelFormat PixelFormat
	Mips        []MipMap
}

func (p *PlatformData) NumMips() uint32 {
	if p == nil {
		return 0
	}
	return uint32(len(p.Mips))
}

// TryLoadMips copies the bulk data of mips [firstMip, NumMips) into out, indexed by mip.
// Returns false when any requested mip holds no data.
func (p *PlatformData) TryLoadMips(firstMip uint32, out [][]byte) bool {
	if p == nil || firstMip >= p.NumMips() {
		return false
	}
	for mip := firstMip; mip < p.NumMips(); mip++ {
		bulk := p.Mips[mip].BulkData
		if len(bulk) == 0 || int(mip) >= len(out) {
			return false
		}
		data := make([]byte, len(bulk))
		copy(data, bulk)
		out[mip] = data
	}
	return true
}
