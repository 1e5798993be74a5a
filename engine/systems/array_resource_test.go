package systems

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// g8PlatformData is a 4x4 G8 array whose slice i holds the byte 'a'+i in
// mip 0, 'A'+i in mip 1 and '0'+i in mip 2.
func g8PlatformData(slices uint32) *metadata.PlatformData {
	pd := &metadata.PlatformData{SizeX: 4, SizeY: 4, NumSlices: slices, PixelFormat: metadata.PixelFormatG8}
	for mip, base := range []byte{'a', 'A', '0'} {
		size := int(metadata.CalcMipMapSize(4, 4, metadata.PixelFormatG8, uint32(mip)))
		var bulk []byte
		for s := uint32(0); s < slices; s++ {
			bulk = append(bulk, bytes.Repeat([]byte{base + byte(s)}, size)...)
		}
		pd.Mips = append(pd.Mips, metadata.MipMap{SizeX: 4 >> mip, SizeY: 4 >> mip, BulkData: bulk})
	}
	return pd
}

func TestArrayResourceLifecycle(t *testing.T) {
	r, backend := newTestRenderer(t, testCaps())
	ref := &metadata.TextureReference{}
	res, err := NewArrayResource(ArrayResourceParams{
		Name:         "lifecycle",
		PlatformData: g8PlatformData(2),
		MipBias:      1,
		SRGB:         true,
		Filter:       metadata.TextureFilterModeNearest,
		LODGroup:     "lifecycle-group",
		TextureSize:  10,
		Reference:    ref,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.State() != ResourceUninitialized {
		t.Fatalf("State() = %s", res.State())
	}
	if res.EffectiveWidth() != 2 || res.EffectiveHeight() != 2 || res.ResidentMipCount() != 2 {
		t.Errorf("effective %dx%d, %d resident mips", res.EffectiveWidth(), res.EffectiveHeight(), res.ResidentMipCount())
	}
	if !res.Flags().Has(metadata.TextureCreateSRGB) || res.Flags().Has(metadata.TextureCreateNoTiling) {
		t.Errorf("Flags() = %b", res.Flags())
	}

	memBefore := core.MemoryStatsTextureMemory()
	countBefore := core.MemoryStatsTextureCount()

	if err := res.Initialize(r); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if res.State() != ResourceReady {
		t.Fatalf("State() = %s, want ready", res.State())
	}
	if got := core.MemoryStatsTextureMemory() - memBefore; got != 10 {
		t.Errorf("texture memory grew by %d, want 10", got)
	}
	if got := core.MemoryStatsGroupMemory("lifecycle-group"); got != 10 {
		t.Errorf("group memory = %d, want 10", got)
	}
	if ref.Texture() == nil || ref.Texture() != res.Texture() {
		t.Error("reference does not point at the new texture")
	}
	if res.Sampler() == nil || res.Sampler().Descriptor.Filter != metadata.TextureFilterModeNearest {
		t.Errorf("sampler = %+v", res.Sampler())
	}
	chain, ok := backend.SliceChain(res.Texture().ID, 1)
	if !ok {
		t.Fatal("slice 1 missing")
	}
	if want := "BBBB1"; string(chain) != want {
		t.Errorf("slice 1 upload = %q, want %q", chain, want)
	}
	if err := res.Initialize(r); !errors.Is(err, core.ErrResourceState) {
		t.Errorf("second Initialize() = %v", err)
	}

	if err := res.Destroy(r); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if got := core.MemoryStatsTextureMemory(); got != memBefore {
		t.Errorf("texture memory = %d after destroy, want %d", got, memBefore)
	}
	if got := core.MemoryStatsTextureCount(); got != countBefore {
		t.Errorf("texture count = %d after destroy, want %d", got, countBefore)
	}
	if ref.IsBound() {
		t.Error("reference still bound after destroy")
	}
	if r.LiveTextures() != 0 || r.LiveSamplers() != 0 {
		t.Errorf("live textures %d, samplers %d", r.LiveTextures(), r.LiveSamplers())
	}
	if err := res.Destroy(r); err != nil {
		t.Errorf("second Destroy() error = %v", err)
	}
	if got := core.MemoryStatsTextureMemory(); got != memBefore {
		t.Errorf("second Destroy() changed texture memory to %d", got)
	}
}

func TestArrayResourceFailedInitialize(t *testing.T) {
	r, backend := newTestRenderer(t, testCaps())
	ref := &metadata.TextureReference{}
	res, err := NewArrayResource(ArrayResourceParams{
		Name:         "fails",
		PlatformData: g8PlatformData(2),
		TextureSize:  42,
		Reference:    ref,
	})
	if err != nil {
		t.Fatal(err)
	}
	backend.FailTextureCreate(errors.New("out of memory"))

	memBefore := core.MemoryStatsTextureMemory()
	if err := res.Initialize(r); err == nil {
		t.Fatal("Initialize() succeeded")
	}
	if res.State() != ResourceDestroyed {
		t.Errorf("State() = %s, want destroyed", res.State())
	}
	if got := core.MemoryStatsTextureMemory(); got != memBefore {
		t.Errorf("texture memory changed by %d", got-memBefore)
	}
	if ref.IsBound() {
		t.Error("reference bound after a failed initialize")
	}
	if err := res.Destroy(r); err != nil {
		t.Errorf("Destroy() after failure = %v", err)
	}
	if got := core.MemoryStatsTextureMemory(); got != memBefore {
		t.Errorf("Destroy() after failure changed texture memory by %d", got-memBefore)
	}
}

func TestArrayResourceDestroyBeforeInitialize(t *testing.T) {
	r, _ := newTestRenderer(t, testCaps())
	res, err := NewArrayResource(ArrayResourceParams{Name: "never", PlatformData: g8PlatformData(1), TextureSize: 7})
	if err != nil {
		t.Fatal(err)
	}
	memBefore := core.MemoryStatsTextureMemory()
	if err := res.Destroy(r); err != nil {
		t.Fatal(err)
	}
	if got := core.MemoryStatsTextureMemory(); got != memBefore {
		t.Errorf("texture memory changed by %d", got-memBefore)
	}
	if err := res.Initialize(r); !errors.Is(err, core.ErrResourceState) {
		t.Errorf("Initialize() after Destroy() = %v", err)
	}
}

func TestNewArrayResourceValidation(t *testing.T) {
	tests := []struct {
		name   string
		params ArrayResourceParams
		target error
	}{
		{"no mips", ArrayResourceParams{Name: "empty", PlatformData: &metadata.PlatformData{}}, core.ErrNoMips},
		{"nil platform data", ArrayResourceParams{Name: "nil"}, core.ErrNoMips},
		{"bias equals mip count", ArrayResourceParams{Name: "bias", PlatformData: g8PlatformData(1), MipBias: 3}, core.ErrInvalidMipBias},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewArrayResource(tt.params)
			if !errors.Is(err, tt.target) {
				t.Fatalf("error = %v, want %v", err, tt.target)
			}
			if !core.IsAssertionFailure(err) {
				t.Errorf("error %v is not an assertion failure", err)
			}
		})
	}
}
