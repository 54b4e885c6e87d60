package imageio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality matches the quality used for delivered files.
const DefaultJPEGQuality = 95

// EncodeJPEG encodes img and stamps dpi into a JFIF APP0 segment.
func EncodeJPEG(img image.Image, dpi, quality int) ([]byte, error) {
	if dpi <= 0 || dpi > 0xffff {
		return nil, fmt.Errorf("encode: dpi %d out of range", dpi)
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return SetJFIFDensity(buf.Bytes(), dpi)
}

// SetJFIFDensity writes a JFIF APP0 segment declaring dpi dots per inch
// right after SOI, replacing an existing APP0 if there is one.
func SetJFIFDensity(jpg []byte, dpi int) ([]byte, error) {
	if len(jpg) < 4 || jpg[0] != 0xff || jpg[1] != 0xd8 {
		return nil, fmt.Errorf("encode: not a jpeg stream")
	}

	rest := jpg[2:]
	if rest[0] == 0xff && rest[1] == 0xe0 && len(rest) >= 4 {
		n := int(binary.BigEndian.Uint16(rest[2:4]))
		if 2+n > len(rest) {
			return nil, fmt.Errorf("encode: truncated APP0 segment")
		}
		rest = rest[2+n:]
	}

	out := make([]byte, 0, len(jpg)+18)
	out = append(out, 0xff, 0xd8)
	out = append(out, jfifSegment(dpi)...)
	out = append(out, rest...)
	return out, nil
}

func jfifSegment(dpi int) []byte {
	seg := []byte{
		0xff, 0xe0, // APP0
		0x00, 0x10, // length 16
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, // version 1.1
		0x01,       // units: dots per inch
		0, 0, 0, 0, // x, y density
		0x00, 0x00, // no thumbnail
	}
	binary.BigEndian.PutUint16(seg[12:14], uint16(dpi))
	binary.BigEndian.PutUint16(seg[14:16], uint16(dpi))
	return seg
}

// ReadJFIFDensity returns the density stored in a JFIF APP0 segment.
func ReadJFIFDensity(jpg []byte) (x, y int, units byte, ok bool) {
	if len(jpg) < 20 || jpg[2] != 0xff || jpg[3] != 0xe0 || !bytes.Equal(jpg[6:11], []byte("JFIF\x00")) {
		return 0, 0, 0, false
	}
	units = jpg[13]
	x = int(binary.BigEndian.Uint16(jpg[14:16]))
	y = int(binary.BigEndian.Uint16(jpg[16:18]))
	return x, y, units, true
}
