package systems

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func TestMipCount(t *testing.T) {
	tests := []struct {
		w, h   uint32
		mipGen metadata.MipGenSettings
		want   uint32
	}{
		{0, 4, metadata.MipGenFromTextureGroup, 0},
		{1, 1, metadata.MipGenFromTextureGroup, 1},
		{4, 4, metadata.MipGenFromTextureGroup, 3},
		{256, 16, metadata.MipGenSimpleAverage, 9},
		{5, 3, metadata.MipGenFromTextureGroup, 3},
		{1 << 15, 1 << 15, metadata.MipGenFromTextureGroup, metadata.MaxTextureMipCount},
		{256, 256, metadata.MipGenNoMipmaps, 1},
	}
	for _, tt := range tests {
		if got := MipCount(tt.w, tt.h, tt.mipGen); got != tt.want {
			t.Errorf("MipCount(%d, %d, %d) = %d, want %d", tt.w, tt.h, tt.mipGen, got, tt.want)
		}
	}
}

func mergedG8(t *testing.T, w, h uint32, values ...byte) *metadata.MergedSource {
	t.Helper()
	sources := make([]*metadata.SourceImage, len(values))
	for i, v := range values {
		sources[i] = solidSource("s", w, h, v)
	}
	merged, err := Aggregate(sources)
	if err != nil {
		t.Fatal(err)
	}
	return merged
}

func near(a, b byte) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func TestCookG8(t *testing.T) {
	source := mergedG8(t, 4, 4, 10, 200)
	pd, err := NewCooker(1).Cook(context.Background(), source, metadata.MipGenFromTextureGroup)
	if err != nil {
		t.Fatalf("Cook() error = %v", err)
	}
	if pd.PixelFormat != metadata.PixelFormatG8 || pd.NumSlices != 2 || pd.NumMips() != 3 {
		t.Fatalf("cooked %s, %d slices, %d mips", pd.PixelFormat, pd.NumSlices, pd.NumMips())
	}
	wantSizes := []int{32, 8, 2}
	for mip, want := range wantSizes {
		if got := len(pd.Mips[mip].BulkData); got != want {
			t.Errorf("mip %d holds %d bytes, want %d", mip, got, want)
		}
	}
	if pd.Mips[1].SizeX != 2 || pd.Mips[2].SizeY != 1 {
		t.Errorf("mip extents = %dx%d, %dx%d", pd.Mips[1].SizeX, pd.Mips[1].SizeY, pd.Mips[2].SizeX, pd.Mips[2].SizeY)
	}
	// Mip-major: all of slice 0, then all of slice 1.
	mip1 := pd.Mips[1].BulkData
	for i := 0; i < 4; i++ {
		if !near(mip1[i], 10) || !near(mip1[4+i], 200) {
			t.Fatalf("mip 1 = %v", mip1)
		}
	}
}

func TestCookAlignment(t *testing.T) {
	source := mergedG8(t, 4, 4, 1, 2)
	pd, err := NewCooker(8).Cook(context.Background(), source, metadata.MipGenFromTextureGroup)
	if err != nil {
		t.Fatal(err)
	}
	// Strides 16, 8 and 8 bytes.
	wantSizes := []int{32, 16, 16}
	for mip, want := range wantSizes {
		if got := len(pd.Mips[mip].BulkData); got != want {
			t.Errorf("mip %d holds %d bytes, want %d", mip, got, want)
		}
	}
	if pd.Mips[2].BulkData[8] != 2 || pd.Mips[2].BulkData[1] != 0 {
		t.Errorf("mip 2 = %v", pd.Mips[2].BulkData)
	}
}

func TestCookNoMipmaps(t *testing.T) {
	source := mergedG8(t, 8, 8, 5)
	pd, err := NewCooker(1).Cook(context.Background(), source, metadata.MipGenNoMipmaps)
	if err != nil {
		t.Fatal(err)
	}
	if pd.NumMips() != 1 || len(pd.Mips[0].BulkData) != 64 {
		t.Errorf("cooked %d mips, %d bytes", pd.NumMips(), len(pd.Mips[0].BulkData))
	}
}

func TestCookEmptySource(t *testing.T) {
	if _, err := NewCooker(1).Cook(context.Background(), metadata.EmptyMergedSource(), metadata.MipGenFromTextureGroup); err == nil {
		t.Error("Cook() accepted an empty source")
	}
}

func TestCookRGBA16BoxFilter(t *testing.T) {
	pixels := make([]byte, 2*2*8)
	for i, v := range []uint16{100, 200, 300, 400} {
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint16(pixels[i*8+c*2:], v)
		}
	}
	source := &metadata.MergedSource{
		Width: 2, Height: 2, NumSlices: 1, NumMips: 1,
		Format: metadata.SourceFormatRGBA16,
		Data:   pixels,
	}
	pd, err := NewCooker(1).Cook(context.Background(), source, metadata.MipGenFromTextureGroup)
	if err != nil {
		t.Fatal(err)
	}
	if pd.PixelFormat != metadata.PixelFormatA16B16G16R16 || pd.NumMips() != 2 {
		t.Fatalf("cooked %s with %d mips", pd.PixelFormat, pd.NumMips())
	}
	for c := 0; c < 4; c++ {
		if got := binary.LittleEndian.Uint16(pd.Mips[1].BulkData[c*2:]); got != 250 {
			t.Errorf("channel %d = %d, want 250", c, got)
		}
	}
}
