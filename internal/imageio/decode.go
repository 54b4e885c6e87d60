// Package imageio decodes source images into opaque RGB and encodes canvas
// output as JPEG with density metadata.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds width*height as declared by the image header. Larger
// images are rejected before any pixel buffer is allocated.
const MaxPixels = 178_956_970

// Source is a decoded image. Image is opaque and must not be modified.
type Source struct {
	Width  int
	Height int
	Format string
	Image  *image.NRGBA
}

// DecodeError reports bytes that are not a supported image.
type DecodeError struct {
	Size int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode image (%d bytes): %v", e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads jpeg, png, gif (first frame), bmp, tiff or webp data and
// converts the result to RGB. Palette, grey and alpha images all go through
// the same conversion.
func Decode(data []byte) (*Source, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty input")}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Size: len(data), Err: err}
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, &DecodeError{
			Size: len(data),
			Err:  fmt.Errorf("declared size %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxPixels),
		}
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Size: len(data), Err: err}
	}

	rgb := ToRGB(img)
	b := rgb.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &DecodeError{Size: len(data), Err: fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())}
	}

	return &Source{Width: b.Dx(), Height: b.Dy(), Format: format, Image: rgb}, nil
}

// ToRGB copies img into a zero-origin NRGBA and discards alpha: colour
// channels are kept as stored and every pixel becomes opaque.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
