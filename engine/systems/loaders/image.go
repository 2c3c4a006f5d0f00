// Package loaders turns asset files into resource data blobs.
package loaders

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

/** @brief Decoded image pixels, always converted to 8-bit RGBA. */
type ImageData struct {
	Pixels   []byte
	Width    uint32
	Height   uint32
	Channels uint8
}

// DecodeImage decodes an image from encoded bytes (PNG, JPEG, BMP or
// TIFF) into tightly packed RGBA.
func DecodeImage(data []byte) (*ImageData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	out := &ImageData{
		Width:    uint32(bounds.Dx()),
		Height:   uint32(bounds.Dy()),
		Channels: 4,
	}

	// NewRGBA has no row padding for this construction, but copy row by
	// row so a stride change cannot corrupt the blob.
	out.Pixels = make([]byte, int(out.Width)*int(out.Height)*4)
	rowLen := int(out.Width) * 4
	for y := 0; y < int(out.Height); y++ {
		copy(out.Pixels[y*rowLen:(y+1)*rowLen], rgba.Pix[y*rgba.Stride:y*rgba.Stride+rowLen])
	}
	return out, nil
}

// LoadImageFile reads and decodes an image file.
func LoadImageFile(path string) (*ImageData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image '%s': %w", path, err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("image '%s': %w", path, err)
	}
	return img, nil
}

// FlipVertical reverses the pixel rows in place, for backends that
// address texture coordinates from the bottom.
func (d *ImageData) FlipVertical() {
	rowLen := int(d.Width) * int(d.Channels)
	tmp := make([]byte, rowLen)
	for y := 0; y < int(d.Height)/2; y++ {
		top := d.Pixels[y*rowLen : (y+1)*rowLen]
		bottom := d.Pixels[(int(d.Height)-1-y)*rowLen : (int(d.Height)-y)*rowLen]
		copy(tmp, top)
		copy(top, bottom)
		copy(bottom, tmp)
	}
}
