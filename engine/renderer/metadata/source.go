package metadata

/**
 * @brief The editor-side source of a single 2D texture. Mips[0] is the highest
 * resolution level. Borrowed by texture arrays, never modified by them.
 */
type SourceImage struct {
	/** @brief The asset name, usually the file path it was imported from. */
	Name    string
	Width   uint32
	Height  uint32
	NumMips uint32
	Format  SourceFormat
	Mips    [][]byte
}

// MipData returns the raw bytes of the given mip and whether it holds any data.
func (s *SourceImage) MipData(mip uint32) ([]byte, bool) {
	if s == nil || int(mip) >= len(s.Mips) || len(s.Mips[mip]) == 0 {
		return nil, false
	}
	return s.Mips[mip], true
}

// MipSize returns the expected byte size of the given mip.
func (s *SourceImage) MipSize(mip uint32) uint64 {
	w := s.Width >> mip
	h := s.Height >> mip
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}
	return uint64(w) * uint64(h) * uint64(s.Format.BytesPerPixel())
}

/**
 * @brief The canonical source of a texture array: mip 0 of every slice, slice
 * after slice in one contiguous buffer. NumSlices == 0 means "no source".
 */
type MergedSource struct {
	Width     uint32
	Height    uint32
	NumSlices uint32
	NumMips   uint32
	Format    SourceFormat
	Data      []byte
}

// EmptyMergedSource is the invalid state every failed or empty aggregation collapses to.
func EmptyMergedSource() *MergedSource {
	return &MergedSource{Format: SourceFormatInvalid}
}

func (m *MergedSource) IsValid() bool {
	return m != nil && m.NumSlices > 0 && len(m.Data) > 0
}

// SliceSize is the byte size of one slice's top mip.
func (m *MergedSource) SliceSize() uint64 {
	return uint64(m.Width) * uint64(m.Height) * uint64(m.Format.BytesPerPixel())
}

// Slice returns the bytes of slice i, nil when out of range.
func (m *MergedSource) Slice(i uint32) []byte {
	if !m.IsValid() || i >= m.NumSlices {
		return nil
	}
	size := m.SliceSize()
	return m.Data[uint64(i)*size : uint64(i+1)*size]
}

// IsPowerOfTwo reports whether width and height are powers of two.
func (m *MergedSource) IsPowerOfTwo() bool {
	return m.Width > 0 && m.Width&(m.Width-1) == 0 && m.Height > 0 && m.Height&(m.Height-1) == 0
}

// Clone returns a deep copy.
func (m *MergedSource) Clone() *MergedSource {
	if m == nil {
		return EmptyMergedSource()
	}
	c := *m
	if m.Data != nil {
		c.Data = make([]byte, len(m.Data))
		copy(c.Data, m.Data)
	}
	return &c
}
