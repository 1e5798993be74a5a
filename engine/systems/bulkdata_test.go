package systems

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func TestPlanAndMerge(t *testing.T) {
	// 4x1 G8, two slices: mip 0 is 4 bytes, mip 1 is 2 bytes, mip 2 is 1 byte per slice.
	chain := [][]byte{
		[]byte("AAAABBBB"),
		[]byte("CCDD"),
		[]byte("Ee"),
	}
	tests := []struct {
		name     string
		chain    [][]byte
		firstMip uint32
		want     string
	}{
		{"all mips", chain, 0, "AAAACCE" + "BBBBDDe"},
		{"biased", chain, 1, "CCE" + "DDe"},
		{"last mip", chain, 2, "Ee"},
		{"short mip is zero padded", [][]byte{[]byte("AAAABBBB"), []byte("CC"), []byte("Ee")}, 0, "AAAACCE" + "BBBB\x00\x00e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanAndMerge(tt.chain, tt.firstMip, 2, 4, 1, metadata.PixelFormatG8)
			if err != nil {
				t.Fatalf("PlanAndMerge() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("PlanAndMerge() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlanAndMergeSingleMipPadsToComputedSize(t *testing.T) {
	// 2x1 G8, two slices: 4 bytes expected, only 2 present.
	got, err := PlanAndMerge([][]byte{[]byte("AB")}, 0, 2, 2, 1, metadata.PixelFormatG8)
	if err != nil {
		t.Fatalf("PlanAndMerge() error = %v", err)
	}
	if !bytes.Equal(got, []byte{'A', 'B', 0, 0}) {
		t.Errorf("PlanAndMerge() = %v", got)
	}
}

func TestPlanAndMergeKeepsPadding(t *testing.T) {
	// Declared buffers larger than computed sizes, as produced by aligned cooking.
	chain := [][]byte{
		[]byte("AAAA____BBBB____"),
		[]byte("CC__DD__"),
	}
	got, err := PlanAndMerge(chain, 0, 2, 4, 1, metadata.PixelFormatG8)
	if err != nil {
		t.Fatalf("PlanAndMerge() error = %v", err)
	}
	if want := "AAAA____CC__" + "BBBB____DD__"; string(got) != want {
		t.Errorf("PlanAndMerge() = %q, want %q", got, want)
	}
}

func TestMergeMipsInvalidBias(t *testing.T) {
	chain := [][]byte{[]byte("AAAABBBB"), []byte("CCDD")}
	tests := []struct {
		name      string
		firstMip  uint32
		numSlices uint32
	}{
		{"bias equals mip count", 2, 2},
		{"bias past mip count", 5, 2},
		{"no slices", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanAndMerge(chain, tt.firstMip, tt.numSlices, 4, 1, metadata.PixelFormatG8)
			if !errors.Is(err, core.ErrInvalidMipBias) {
				t.Fatalf("error = %v, want ErrInvalidMipBias", err)
			}
			if !core.IsAssertionFailure(err) {
				t.Errorf("error %v is not marked as an assertion failure", err)
			}
		})
	}
}

func TestLoadMipsUsesLargerSize(t *testing.T) {
	pd := &metadata.PlatformData{
		SizeX: 4, SizeY: 4, NumSlices: 2, PixelFormat: metadata.PixelFormatG8,
		Mips: []metadata.MipMap{
			{SizeX: 4, SizeY: 4, BulkData: make([]byte, 40)},
			{SizeX: 2, SizeY: 2, BulkData: make([]byte, 2)},
		},
	}
	b := NewArrayBulkData(0, 2)
	if !b.LoadMips(pd) {
		t.Fatal("LoadMips() = false")
	}
	if b.mipSize[0] != 40 {
		t.Errorf("mip 0 size = %d, want the declared 40", b.mipSize[0])
	}
	if b.mipSize[1] != 8 {
		t.Errorf("mip 1 size = %d, want the computed 8", b.mipSize[1])
	}
	if err := b.MergeMips(2); err != nil {
		t.Fatal(err)
	}
	if b.Size() != 48 || len(b.Data()) != 48 {
		t.Errorf("merged size = %d (%d bytes), want 48", b.Size(), len(b.Data()))
	}
	b.Discard()
	if b.Data() != nil {
		t.Error("Discard() kept data")
	}
}

func TestLoadMipsMissingData(t *testing.T) {
	pd := &metadata.PlatformData{
		SizeX: 2, SizeY: 2, NumSlices: 1, PixelFormat: metadata.PixelFormatG8,
		Mips:  []metadata.MipMap{{SizeX: 2, SizeY: 2}},
	}
	if NewArrayBulkData(0, 1).LoadMips(pd) {
		t.Error("LoadMips() accepted a mip without data")
	}
}
