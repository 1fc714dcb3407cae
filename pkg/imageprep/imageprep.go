// Package imageprep loads meal photos and normalizes them for upload to a
// vision model: bounded dimensions, JPEG re-encoding at fixed quality, and
// base64 data-URI output.
package imageprep

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds either side of the uploaded image. Larger
	// inputs are downscaled preserving aspect ratio; smaller inputs are
	// never upscaled.
	MaxDimension = 1200

	// JPEGQuality is the fixed re-encoding quality for uploads.
	JPEGQuality = 80

	// MaxAdvisoryBytes is the advisory cap on selected files. Oversized
	// files are compressed rather than rejected.
	MaxAdvisoryBytes = 5 << 20
)

// ErrNotAnImage reports that the selected input is not an image type.
var ErrNotAnImage = errors.New("input is not an image")

// Preparer normalizes arbitrary source images for the inference client.
type Preparer struct {
	maxDimension int
	quality      int
	httpClient   *http.Client
}

// New creates a Preparer with the default upload bounds.
func New() *Preparer {
	return NewWithBounds(MaxDimension, JPEGQuality)
}

// NewWithBounds creates a Preparer with custom dimension and quality bounds.
func NewWithBounds(maxDimension, quality int) *Preparer {
	if maxDimension <= 0 {
		maxDimension = MaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = JPEGQuality
	}
	return &Preparer{
		maxDimension: maxDimension,
		quality:      quality,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadFile loads an image from a file path with WebP support.
func (p *Preparer) LoadFile(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// LoadURL downloads and decodes an image from an http(s) URL.
func (p *Preparer) LoadURL(imageURL string) (image.Image, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s", parsed.Scheme)
	}

	resp, err := p.httpClient.Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: Content-Type %s", ErrNotAnImage, ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return p.Decode(data)
}

// Load loads an image from either a file path or URL.
func (p *Preparer) Load(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadURL(source)
	}
	return p.LoadFile(source)
}

// Decode decodes image bytes, sniffing the MIME type first so non-image
// uploads fail with ErrNotAnImage before any decode attempt.
func (p *Preparer) Decode(data []byte) (image.Image, error) {
	if !IsImageData(data) {
		return nil, fmt.Errorf("%w: %s", ErrNotAnImage, http.DetectContentType(data))
	}

	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// IsImageData reports whether the byte content sniffs as an image MIME type.
func IsImageData(data []byte) bool {
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

// Normalize bounds an image to the configured maximum dimension, preserving
// aspect ratio. Images already within bounds are returned unchanged; no
// upscaling ever happens.
func (p *Preparer) Normalize(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= p.maxDimension && h <= p.maxDimension {
		return img
	}
	if w >= h {
		return imaging.Resize(img, p.maxDimension, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, p.maxDimension, imaging.Lanczos)
}

// EncodeJPEG normalizes and re-encodes an image at the configured quality.
func (p *Preparer) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, p.Normalize(img), &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// PrepareBase64 produces the base64 JPEG payload sent to the model.
func (p *Preparer) PrepareBase64(img image.Image) (string, error) {
	data, err := p.EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// PrepareDataURI produces an inline data-URI image part for chat-completion
// requests.
func (p *Preparer) PrepareDataURI(img image.Image) (string, error) {
	b64, err := p.PrepareBase64(img)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + b64, nil
}
