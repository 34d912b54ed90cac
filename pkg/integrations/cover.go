package integrations

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// CoverSettings controls how a cover is re-encoded before upload.
type CoverSettings struct {
	MaxWidth  int
	MaxHeight int
	Quality   int // JPEG quality (1-100)
	Grayscale bool
}

// CoverProcessor turns whatever sits in a novel's cover.jpg into a JPEG
// that fits the target device.
type CoverProcessor struct {
	settings CoverSettings
}

func NewCoverProcessor(settings CoverSettings) *CoverProcessor {
	if settings.Quality <= 0 || settings.Quality > 100 {
		settings.Quality = jpeg.DefaultQuality
	}
	return &CoverProcessor{settings: settings}
}

// NewCoverProcessorForDevice falls back to the default device for unknown ids.
func NewCoverProcessorForDevice(deviceID string) *CoverProcessor {
	device, ok := GetDeviceProfile(deviceID)
	if !ok {
		device = KindleDevices[DefaultDevice]
	}
	return NewCoverProcessor(device.CoverSettings())
}

// Process decodes a JPEG or PNG, scales it down to fit and encodes it as JPEG.
func (p *CoverProcessor) Process(input io.Reader) ([]byte, error) {
	img, _, err := image.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}

	bounds := img.Bounds()
	w, h := p.calculateDimensions(bounds.Dx(), bounds.Dy())

	var out image.Image = img
	if w != bounds.Dx() || h != bounds.Dy() {
		out = p.resize(img, w, h)
	}
	if p.settings.Grayscale {
		out = toGrayscale(out)
	}
	return p.encode(out)
}

// ProcessFile reads and processes the cover at path.
func (p *CoverProcessor) ProcessFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Process(f)
}

// Placeholder renders a plain cover used when a novel has no cover.jpg.
func (p *CoverProcessor) Placeholder() ([]byte, error) {
	w, h := p.settings.MaxWidth, p.settings.MaxHeight
	if w <= 0 || h <= 0 {
		w, h = 600, 800
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{0xf2, 0xee, 0xe3, 0xff}}, image.Point{}, draw.Src)

	// dark band across the upper third
	band := image.Rect(0, h/4, w, h/4+h/6)
	draw.Draw(img, band, &image.Uniform{color.RGBA{0x3c, 0x3c, 0x46, 0xff}}, image.Point{}, draw.Src)

	frame := w / 30
	if frame < 2 {
		frame = 2
	}
	border := &image.Uniform{color.RGBA{0x7d, 0x56, 0xf4, 0xff}}
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, w, frame),
		image.Rect(0, h-frame, w, h),
		image.Rect(0, 0, frame, h),
		image.Rect(w-frame, 0, w, h),
	} {
		draw.Draw(img, r, border, image.Point{}, draw.Src)
	}

	var out image.Image = img
	if p.settings.Grayscale {
		out = toGrayscale(img)
	}
	return p.encode(out)
}

// calculateDimensions keeps the aspect ratio and never upscales.
func (p *CoverProcessor) calculateDimensions(width, height int) (int, int) {
	maxW, maxH := p.settings.MaxWidth, p.settings.MaxHeight
	if maxW <= 0 || maxH <= 0 || (width <= maxW && height <= maxH) {
		return width, height
	}

	scale := float64(maxW) / float64(width)
	if hs := float64(maxH) / float64(height); hs < scale {
		scale = hs
	}

	w := int(float64(width) * scale)
	h := int(float64(height) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func (p *CoverProcessor) resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func toGrayscale(img image.Image) image.Image {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

func (p *CoverProcessor) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.settings.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
