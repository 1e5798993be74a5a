package loaders

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func cookedArchive() *metadata.TextureArrayArchive {
	pd := &metadata.PlatformData{SizeX: 4, SizeY: 4, NumSlices: 2, PixelFormat: metadata.PixelFormatG8}
	for mip, size := range []int{32, 8, 2} {
		data := bytes.Repeat([]byte{byte('a' + mip)}, size)
		pd.Mips = append(pd.Mips, metadata.MipMap{SizeX: 4 >> mip, SizeY: 4 >> mip, BulkData: data})
	}
	return &metadata.TextureArrayArchive{
		Name:         "terrain_2DArray",
		SourceNames:  []string{"textures/grass.png", "textures/rock.png"},
		Settings:     metadata.DefaultTextureArraySettings(),
		Cooked:       true,
		ContentGUID:  [16]byte{1, 2, 3, 4},
		PlatformData: pd,
	}
}

func TestArchiveRoundTripCooked(t *testing.T) {
	ar := cookedArchive()
	var buf bytes.Buffer
	if err := WriteTextureArray(&buf, ar); err != nil {
		t.Fatalf("WriteTextureArray() error = %v", err)
	}

	got, err := ReadTextureArray(&buf)
	if err != nil {
		t.Fatalf("ReadTextureArray() error = %v", err)
	}
	if got.Name != ar.Name || got.ContentGUID != ar.ContentGUID || !got.Cooked {
		t.Errorf("header = %+v", got)
	}
	if len(got.SourceNames) != 2 || got.SourceNames[1] != "textures/rock.png" {
		t.Errorf("SourceNames = %v", got.SourceNames)
	}
	if got.Settings != ar.Settings {
		t.Errorf("Settings = %+v, want %+v", got.Settings, ar.Settings)
	}
	pd := got.PlatformData
	if pd == nil || pd.NumMips() != 3 || pd.NumSlices != 2 || pd.PixelFormat != metadata.PixelFormatG8 {
		t.Fatalf("PlatformData = %+v", pd)
	}
	for i, mip := range pd.Mips {
		want := ar.PlatformData.Mips[i]
		if mip.SizeX != want.SizeX || mip.SizeY != want.SizeY || !bytes.Equal(mip.BulkData, want.BulkData) {
			t.Errorf("mip %d differs", i)
		}
	}
}

func TestArchiveRoundTripSourcesOnly(t *testing.T) {
	ar := cookedArchive()
	ar.Cooked = false

	var buf bytes.Buffer
	if err := WriteTextureArray(&buf, ar); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTextureArray(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cooked || got.PlatformData != nil {
		t.Error("source only archive carries cooked data")
	}
	if len(got.SourceNames) != 2 {
		t.Errorf("SourceNames = %v", got.SourceNames)
	}
}

func TestReadTextureArrayRejectsGarbage(t *testing.T) {
	var valid bytes.Buffer
	if err := WriteTextureArray(&valid, cookedArchive()); err != nil {
		t.Fatal(err)
	}
	raw := valid.Bytes()
	headerEnd := 16 + int(binary.LittleEndian.Uint64(raw[8:16]))
	badVersion := append([]byte(nil), raw...)
	badVersion[4] = 99

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("PNG\x00\x01\x00\x00\x00")},
		{"bad version", badVersion},
		{"truncated header", raw[:16]},
		{"truncated mips", raw[:headerEnd+8]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTextureArray(bytes.NewReader(tt.data))
			if !errors.Is(err, core.ErrInvalidArchive) {
				t.Errorf("ReadTextureArray() = %v, want ErrInvalidArchive", err)
			}
		})
	}
}

func TestArchiveLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain"+ArchiveExtension)
	if err := SaveTextureArray(path, cookedArchive()); err != nil {
		t.Fatal(err)
	}

	loader := &ArchiveLoader{}
	res, err := loader.Load(path, metadata.ResourceTypeTextureArray, nil)
	if err != nil {
		t.Fatal(err)
	}
	ar, ok := res.Data.(*metadata.TextureArrayArchive)
	if !ok || ar.Name != "terrain_2DArray" {
		t.Fatalf("Data = %#v", res.Data)
	}
	if res.Name != "terrain.t2da" || res.DataSize == 0 {
		t.Errorf("resource = %+v", res)
	}
	if err := loader.Unload(res); err != nil || res.Data != nil {
		t.Errorf("Unload() = %v", err)
	}
	if _, err := loader.Load(filepath.Join(t.TempDir(), "missing.t2da"), metadata.ResourceTypeTextureArray, nil); err == nil {
		t.Error("loading a missing archive succeeded")
	}
}

func framedHeader(t *testing.T, header archiveHeader) []byte {
	t.Helper()
	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(&header); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	out.Write(archiveMagic[:])
	binary.Write(&out, binary.LittleEndian, ArchiveVersion)
	binary.Write(&out, binary.LittleEndian, int64(encoded.Len()))
	out.Write(encoded.Bytes())
	return out.Bytes()
}

func TestReadTextureArrayRejectsCorruptHeader(t *testing.T) {
	cooked := func(mutate func(h *archiveHeader)) []byte {
		h := archiveHeader{
			Name:        "corrupt",
			Cooked:      true,
			SizeX:       4,
			SizeY:       4,
			NumSlices:   2,
			PixelFormat: metadata.PixelFormatG8,
			Mips:        []mipEntry{{SizeX: 4, SizeY: 4, Size: 32}},
		}
		mutate(&h)
		return framedHeader(t, h)
	}
	hugeHeader := append(append([]byte(nil), archiveMagic[:]...), 1, 0, 0, 0)
	hugeHeader = binary.LittleEndian.AppendUint64(hugeHeader, 1<<62)

	tests := []struct {
		name string
		data []byte
	}{
		{"huge header size", hugeHeader},
		{"huge mip size", cooked(func(h *archiveHeader) { h.Mips[0].Size = 1 << 62 })},
		{"negative mip size", cooked(func(h *archiveHeader) { h.Mips[0].Size = -1 })},
		{"no mips", cooked(func(h *archiveHeader) { h.Mips = nil })},
		{"too many slices", cooked(func(h *archiveHeader) { h.NumSlices = 100000 })},
		{"zero size", cooked(func(h *archiveHeader) { h.SizeX = 0 })},
		{"oversized texture", cooked(func(h *archiveHeader) { h.SizeY = 1 << 20 })},
		{"unknown format", cooked(func(h *archiveHeader) { h.PixelFormat = metadata.PixelFormatUnknown })},
		{"missing mip data", cooked(func(h *archiveHeader) {})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTextureArray(bytes.NewReader(tt.data))
			if !errors.Is(err, core.ErrInvalidArchive) {
				t.Errorf("ReadTextureArray() = %v, want ErrInvalidArchive", err)
			}
		})
	}
}
