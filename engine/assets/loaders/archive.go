package loaders

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// Texture array archives start with the magic, a format version and the
// size of the gob encoded header. Cooked archives follow the header with one
// lz4 stream holding every mip's bulk data, mip after mip.
const (
	ArchiveExtension = ".t2da"
	ArchiveVersion   = uint32(1)
	magicLength      = 4

	// Limits applied to values read from an archive before anything is allocated.
	maxHeaderSize       = 1 << 20
	maxTextureDimension = 16384
)

var archiveMagic = [magicLength]byte{'T', '2', 'D', 'A'}

type mipEntry struct {
	SizeX uint32
	SizeY uint32
	Size  int64
}

type archiveHeader struct {
	Name        string
	SourceNames []string
	Settings    metadata.TextureArraySettings
	Cooked      bool
	ContentGUID [16]byte

	SizeX       uint32
	SizeY       uint32
	NumSlices   uint32
	PixelFormat metadata.PixelFormat
	Mips        []mipEntry
}

// WriteTextureArray serializes ar to w.
func WriteTextureArray(w io.Writer, ar *metadata.TextureArrayArchive) error {
	if ar == nil {
		return errors.Wrap(core.ErrInvalidArchive, "nothing to write")
	}
	header := archiveHeader{
		Name:        ar.Name,
		SourceNames: ar.SourceNames,
		Settings:    ar.Settings,
		Cooked:      ar.Cooked && ar.PlatformData != nil,
		ContentGUID: ar.ContentGUID,
	}
	if header.Cooked {
		pd := ar.PlatformData
		header.SizeX, header.SizeY, header.NumSlices, header.PixelFormat = pd.SizeX, pd.SizeY, pd.NumSlices, pd.PixelFormat
		for _, mip := range pd.Mips {
			header.Mips = append(header.Mips, mipEntry{SizeX: mip.SizeX, SizeY: mip.SizeY, Size: int64(len(mip.BulkData))})
		}
	}

	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(&header); err != nil {
		return errors.Wrap(err, "encoding texture array header")
	}

	if _, err := w.Write(archiveMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ArchiveVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int64(encoded.Len())); err != nil {
		return err
	}
	if _, err := w.Write(encoded.Bytes()); err != nil {
		return err
	}
	if !header.Cooked {
		return nil
	}

	zw := lz4.NewWriter(w)
	for _, mip := range ar.PlatformData.Mips {
		if _, err := zw.Write(mip.BulkData); err != nil {
			return errors.Wrap(err, "compressing mip data")
		}
	}
	return zw.Close()
}

// ReadTextureArray parses an archive written by WriteTextureArray.
func ReadTextureArray(r io.Reader) (*metadata.TextureArrayArchive, error) {
	var magic [magicLength]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != archiveMagic {
		return nil, errors.Wrap(core.ErrInvalidArchive, "not a texture array archive")
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, errors.Wrap(core.ErrInvalidArchive, "truncated version")
	}
	if version != ArchiveVersion {
		return nil, errors.Wrapf(core.ErrInvalidArchive, "unsupported version %d", version)
	}
	var headerSize int64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil || headerSize <= 0 || headerSize > maxHeaderSize {
		return nil, errors.Wrapf(core.ErrInvalidArchive, "bad header size %d", headerSize)
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrap(core.ErrInvalidArchive, "truncated header")
	}
	var header archiveHeader
	if err := gob.NewDecoder(bytes.NewReader(headerBytes)).Decode(&header); err != nil {
		return nil, errors.Wrapf(core.ErrInvalidArchive, "decoding header: %v", err)
	}

	ar := &metadata.TextureArrayArchive{
		Name:        header.Name,
		SourceNames: header.SourceNames,
		Settings:    header.Settings,
		Cooked:      header.Cooked,
		ContentGUID: header.ContentGUID,
	}
	if !header.Cooked {
		return ar, nil
	}
	if err := validateCookedHeader(&header); err != nil {
		return nil, err
	}

	zr := lz4.NewReader(r)
	pd := &metadata.PlatformData{
		SizeX:       header.SizeX,
		SizeY:       header.SizeY,
		NumSlices:   header.NumSlices,
		PixelFormat: header.PixelFormat,
		Mips:        make([]metadata.MipMap, len(header.Mips)),
	}
	for i, entry := range header.Mips {
		// Grows with the data actually present instead of trusting the header.
		var data bytes.Buffer
		if _, err := io.CopyN(&data, zr, entry.Size); err != nil {
			return nil, errors.Wrapf(core.ErrInvalidArchive, "reading mip %d: %v", i, err)
		}
		pd.Mips[i] = metadata.MipMap{SizeX: entry.SizeX, SizeY: entry.SizeY, BulkData: data.Bytes()}
	}
	ar.PlatformData = pd
	return ar, nil
}

// validateCookedHeader checks the cooked shape and bounds every mip size by
// the computed size of all slices with the largest supported alignment.
func validateCookedHeader(h *archiveHeader) error {
	switch {
	case len(h.Mips) == 0 || len(h.Mips) > int(metadata.MaxTextureMipCount):
		return errors.Wrapf(core.ErrInvalidArchive, "'%s' has %d cooked mips", h.Name, len(h.Mips))
	case h.SizeX == 0 || h.SizeY == 0 || h.SizeX > maxTextureDimension || h.SizeY > maxTextureDimension:
		return errors.Wrapf(core.ErrInvalidArchive, "'%s' has size %dx%d", h.Name, h.SizeX, h.SizeY)
	case h.NumSlices == 0 || h.NumSlices > uint32(metadata.MaxTextureArraySlices):
		return errors.Wrapf(core.ErrInvalidArchive, "'%s' has %d slices", h.Name, h.NumSlices)
	case h.PixelFormat.Info().BlockBytes == 0:
		return errors.Wrapf(core.ErrInvalidArchive, "'%s' has unknown pixel format %d", h.Name, h.PixelFormat)
	}
	for i, entry := range h.Mips {
		perSlice := metadata.CalcMipMapSize(h.SizeX, h.SizeY, h.PixelFormat, uint32(i))
		limit := math.GetAligned(perSlice, core.MaxBulkDataAlignment) * uint64(h.NumSlices)
		if entry.Size < 0 || uint64(entry.Size) > limit {
			return errors.Wrapf(core.ErrInvalidArchive, "mip %d of '%s' claims %d bytes, at most %d expected", i, h.Name, entry.Size, limit)
		}
	}
	return nil
}

// SaveTextureArray writes ar to path.
func SaveTextureArray(path string, ar *metadata.TextureArrayArchive) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := WriteTextureArray(w, ar); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type ArchiveLoader struct{}

func (al *ArchiveLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening texture array '%s'", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	ar, err := ReadTextureArray(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "reading '%s'", path)
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(info.Size()),
		Data:     ar,
	}, nil
}

func (al *ArchiveLoader) Unload(resource *metadata.Resource) error {
	if resource == nil {
		return errors.New("cannot unload a nil resource")
	}
	resource.Data = nil
	return nil
}
