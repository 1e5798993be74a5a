package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSourceImageFromImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(0, 0, color.Gray{Y: 10})
	gray.SetGray(1, 1, color.Gray{Y: 40})

	rgba := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	rgba.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	wide := image.NewRGBA64(image.Rect(0, 0, 1, 1))
	wide.SetRGBA64(0, 0, color.RGBA64{R: 0x0102, G: 0x0304, B: 0x0506, A: 0xffff})

	tests := []struct {
		name   string
		img    image.Image
		flipY  bool
		format metadata.SourceFormat
		want   []byte
	}{
		{"gray", gray, false, metadata.SourceFormatG8, []byte{10, 0, 0, 40}},
		{"gray flipped", gray, true, metadata.SourceFormatG8, []byte{0, 40, 10, 0}},
		{"nrgba to bgra", rgba, false, metadata.SourceFormatBGRA8, []byte{3, 2, 1, 4}},
		{"rgba64", wide, false, metadata.SourceFormatRGBA16, []byte{0x02, 0x01, 0x04, 0x03, 0x06, 0x05, 0xff, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := SourceImageFromImage("img", tt.img, tt.flipY)
			if src.Format != tt.format || src.NumMips != 1 {
				t.Fatalf("format %s with %d mips", src.Format, src.NumMips)
			}
			if string(src.Mips[0]) != string(tt.want) {
				t.Errorf("pixels = %v, want %v", src.Mips[0], tt.want)
			}
		})
	}
}

func TestImageLoader(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	path := writePNG(t, img)

	loader := &ImageLoader{}
	res, err := loader.Load(path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: true})
	if err != nil {
		t.Fatal(err)
	}
	src, ok := res.Data.(*metadata.SourceImage)
	if !ok {
		t.Fatalf("Data = %T", res.Data)
	}
	if src.Width != 4 || src.Height != 2 || src.Format != metadata.SourceFormatG8 {
		t.Errorf("decoded %dx%d %s", src.Width, src.Height, src.Format)
	}
	if src.Mips[0][0] != 4 || src.Mips[0][4] != 0 {
		t.Errorf("rows not flipped: %v", src.Mips[0])
	}
	if src.Name != path || res.DataSize != 8 || res.LoaderID != 1 {
		t.Errorf("resource = %+v", res)
	}
	if err := loader.Unload(res); err != nil || res.Data != nil {
		t.Errorf("Unload() = %v", err)
	}

	bogus := filepath.Join(t.TempDir(), "bogus.png")
	if err := os.WriteFile(bogus, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.Load(bogus, metadata.ResourceTypeImage, nil); err == nil {
		t.Error("decoding garbage succeeded")
	}
}
