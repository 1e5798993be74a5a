package loaders

import (
	"encoding/binary"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

/**
 * @brief Decodes png, jpeg, bmp and tiff files into single-mip source images.
 * Grey images become G8, 16 bit images RGBA16 and everything else BGRA8.
 */
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	flipY := false
	if typedParams, ok := params.(*metadata.ImageResourceParams); ok && typedParams != nil {
		flipY = typedParams.FlipY
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening image '%s'", path)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image '%s'", path)
	}

	src := SourceImageFromImage(path, img, flipY)
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(src.Mips[0])),
		Data:     src,
		LoaderID: loaderIDFor(format),
	}, nil
}

func (il *ImageLoader) Unload(resource *metadata.Resource) error {
	if resource == nil {
		return errors.New("cannot unload a nil resource")
	}
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

func loaderIDFor(format string) uint32 {
	switch format {
	case "png":
		return 1
	case "jpeg":
		return 2
	case "bmp":
		return 3
	case "tiff":
		return 4
	default:
		return metadata.InvalidID
	}
}

// SourceImageFromImage converts a decoded image into a source image named name.
func SourceImageFromImage(name string, img image.Image, flipY bool) *metadata.SourceImage {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var sourceFormat metadata.SourceFormat
	switch img.(type) {
	case *image.Gray:
		sourceFormat = metadata.SourceFormatG8
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		sourceFormat = metadata.SourceFormatRGBA16
	default:
		sourceFormat = metadata.SourceFormatBGRA8
	}

	bpp := int(sourceFormat.BytesPerPixel())
	pixels := make([]byte, width*height*bpp)
	for y := 0; y < height; y++ {
		row := y
		if flipY {
			row = height - 1 - y
		}
		for x := 0; x < width; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			dst := pixels[(row*width+x)*bpp:]
			switch sourceFormat {
			case metadata.SourceFormatG8:
				dst[0] = color.GrayModel.Convert(c).(color.Gray).Y
			case metadata.SourceFormatRGBA16:
				n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
				binary.LittleEndian.PutUint16(dst[0:], n.R)
				binary.LittleEndian.PutUint16(dst[2:], n.G)
				binary.LittleEndian.PutUint16(dst[4:], n.B)
				binary.LittleEndian.PutUint16(dst[6:], n.A)
			default:
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				dst[0], dst[1], dst[2], dst[3] = n.B, n.G, n.R, n.A
			}
		}
	}

	return &metadata.SourceImage{
		Name:    name,
		Width:   uint32(width),
		Height:  uint32(height),
		NumMips: 1,
		Format:  sourceFormat,
		Mips:    [][]byte{pixels},
	}
}
