package imageio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeFormats(t *testing.T) {
	rgba := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for i := range rgba.Pix {
		rgba.Pix[i] = 0x80
	}

	pal := image.NewPaletted(image.Rect(0, 0, 5, 2), color.Palette{color.Black, color.White})
	var gifBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, pal, nil); err != nil {
		t.Fatal(err)
	}

	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, image.NewGray(image.Rect(0, 0, 7, 7))); err != nil {
		t.Fatal(err)
	}

	var jpgBuf bytes.Buffer
	if err := jpeg.Encode(&jpgBuf, image.NewGray(image.Rect(0, 0, 9, 6)), nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		data   []byte
		w, h   int
		format string
	}{
		{"png with alpha", encodePNG(t, rgba), 4, 3, "png"},
		{"gif palette", gifBuf.Bytes(), 5, 2, "gif"},
		{"bmp grey", bmpBuf.Bytes(), 7, 7, "bmp"},
		{"jpeg grey", jpgBuf.Bytes(), 9, 6, "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if src.Width != tt.w || src.Height != tt.h {
				t.Errorf("expected %dx%d, got %dx%d", tt.w, tt.h, src.Width, src.Height)
			}
			if src.Format != tt.format {
				t.Errorf("expected format %s, got %s", tt.format, src.Format)
			}
			for i := 3; i < len(src.Image.Pix); i += 4 {
				if src.Image.Pix[i] != 0xff {
					t.Fatalf("pixel %d not opaque", i/4)
				}
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("<html>not found</html>"), {0xff, 0xd8, 0xff}} {
		_, err := Decode(data)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("expected *DecodeError for %q, got %v", data, err)
		}
	}
}

// withPNGSize rewrites the IHDR width and height of an encoded PNG and fixes
// the chunk CRC, leaving the pixel data as it was.
func withPNGSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	// 8 byte signature, then IHDR: length(4) type(4) data(13) crc(4)
	if string(out[12:16]) != "IHDR" {
		t.Fatalf("unexpected first chunk %q", out[12:16])
	}
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	small := encodePNG(t, image.NewNRGBA(image.Rect(0, 0, 1, 1)))

	tests := []struct {
		name string
		w, h uint32
		ok   bool
	}{
		{"30000x30000", 30000, 30000, false},
		{"one pixel over", MaxPixels/2 + 1, 2, false},
		{"real size", 1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(withPNGSize(t, small, tt.w, tt.h))
			if tt.ok {
				if err != nil {
					t.Fatalf("Decode: %v", err)
				}
				return
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if !bytes.Contains([]byte(de.Error()), []byte("exceeds")) {
				t.Errorf("unexpected message %q", de.Error())
			}
		})
	}
}

func TestToRGBKeepsColourDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 12, 11))
	img.SetNRGBA(10, 10, color.NRGBA{R: 200, G: 100, B: 50, A: 0})

	out := ToRGB(img)
	if out.Bounds().Min != (image.Point{}) {
		t.Errorf("expected zero origin, got %v", out.Bounds())
	}
	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{R: 200, G: 100, B: 50, A: 255}) {
		t.Errorf("unexpected pixel %v", got)
	}
}

func TestEncodeJPEGDensity(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))

	for _, dpi := range []int{72, 300} {
		data, err := EncodeJPEG(img, dpi, 90)
		if err != nil {
			t.Fatalf("EncodeJPEG: %v", err)
		}

		x, y, units, ok := ReadJFIFDensity(data)
		if !ok || x != dpi || y != dpi || units != 1 {
			t.Errorf("dpi %d: got x=%d y=%d units=%d ok=%v", dpi, x, y, units, ok)
		}

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("output does not decode: %v", err)
		}
		if cfg.Width != 16 || cfg.Height != 8 {
			t.Errorf("unexpected size %dx%d", cfg.Width, cfg.Height)
		}
	}
}

func TestSetJFIFDensityReplacesExisting(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	first, err := EncodeJPEG(img, 72, 90)
	if err != nil {
		t.Fatal(err)
	}

	second, err := SetJFIFDensity(first, 150)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != len(first) {
		t.Errorf("APP0 should be replaced, not duplicated: %d vs %d bytes", len(second), len(first))
	}
	if x, _, _, _ := ReadJFIFDensity(second); x != 150 {
		t.Errorf("expected 150 dpi, got %d", x)
	}
}

func TestEncodeJPEGRejectsBadDPI(t *testing.T) {
	if _, err := EncodeJPEG(image.NewNRGBA(image.Rect(0, 0, 1, 1)), 0, 90); err == nil {
		t.Error("expected error for zero dpi")
	}
	if _, err := SetJFIFDensity([]byte("nope"), 72); err == nil {
		t.Error("expected error for non-jpeg input")
	}
}
