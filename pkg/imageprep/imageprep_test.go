package imageprep

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"strings"
	"testing"
)

// createTestImage creates a simple gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 96, 255})
		}
	}
	return img
}

func TestNormalizeDownscalesLargeImages(t *testing.T) {
	p := New()

	tests := []struct {
		w, h int
	}{
		{2400, 1600},
		{1600, 2400},
		{4000, 4000},
		{1201, 300},
	}

	for _, test := range tests {
		img := createTestImage(test.w, test.h)
		out := p.Normalize(img)
		b := out.Bounds()

		if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
			t.Errorf("%dx%d: normalized to %dx%d, exceeds %d", test.w, test.h, b.Dx(), b.Dy(), MaxDimension)
		}
		if b.Dx() > test.w || b.Dy() > test.h {
			t.Errorf("%dx%d: normalized to %dx%d, dimension increased", test.w, test.h, b.Dx(), b.Dy())
		}

		wantRatio := float64(test.w) / float64(test.h)
		gotRatio := float64(b.Dx()) / float64(b.Dy())
		if math.Abs(wantRatio-gotRatio)/wantRatio > 0.01 {
			t.Errorf("%dx%d: aspect ratio %f changed to %f", test.w, test.h, wantRatio, gotRatio)
		}
	}
}

func TestNormalizeNeverUpscales(t *testing.T) {
	p := New()

	img := createTestImage(640, 480)
	out := p.Normalize(img)
	b := out.Bounds()

	if b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("in-bounds image should be unchanged, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestDecodeAcceptsPNGAndJPEG(t *testing.T) {
	p := New()
	img := createTestImage(120, 80)

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, img, nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}

	for name, data := range map[string][]byte{"png": pngBuf.Bytes(), "jpeg": jpegBuf.Bytes()} {
		decoded, err := p.Decode(data)
		if err != nil {
			t.Errorf("%s: decode failed: %v", name, err)
			continue
		}
		if decoded.Bounds().Dx() != 120 || decoded.Bounds().Dy() != 80 {
			t.Errorf("%s: decoded to %v, expected 120x80", name, decoded.Bounds())
		}
	}
}

func TestDecodeRejectsNonImage(t *testing.T) {
	p := New()

	if _, err := p.Decode([]byte("this is not an image at all, just plain text")); err == nil {
		t.Error("expected non-image input to be rejected")
	}

	if IsImageData([]byte("<html><body>nope</body></html>")) {
		t.Error("HTML should not sniff as an image")
	}
}

func TestPrepareDataURI(t *testing.T) {
	p := New()
	img := createTestImage(300, 200)

	uri, err := p.PrepareDataURI(img)
	if err != nil {
		t.Fatalf("PrepareDataURI failed: %v", err)
	}

	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Errorf("unexpected data URI prefix: %.40s", uri)
	}
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	p := New()
	img := createTestImage(2400, 1200)

	data, err := p.EncodeJPEG(img)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("re-encoded payload is not valid JPEG: %v", err)
	}

	b := decoded.Bounds()
	if b.Dx() != MaxDimension || b.Dy() != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, b.Dx(), b.Dy())
	}
}

func TestNewWithBoundsDefaults(t *testing.T) {
	p := NewWithBounds(0, 0)
	if p.maxDimension != MaxDimension {
		t.Errorf("expected default max dimension %d, got %d", MaxDimension, p.maxDimension)
	}
	if p.quality != JPEGQuality {
		t.Errorf("expected default quality %d, got %d", JPEGQuality, p.quality)
	}
}

func BenchmarkNormalize(b *testing.B) {
	p := New()
	img := createTestImage(2400, 1600)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Normalize(img)
	}
}
