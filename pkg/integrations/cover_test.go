package integrations

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestCoverProcessor_CalculateDimensions(t *testing.T) {
	processor := NewCoverProcessor(CoverSettings{MaxWidth: 800, MaxHeight: 1200})

	tests := []struct {
		name       string
		width      int
		height     int
		wantWidth  int
		wantHeight int
	}{
		{"no resize needed", 600, 800, 600, 800},
		{"resize width", 1000, 800, 800, 640},
		{"resize height", 800, 1500, 640, 1200},
		{"resize both", 1600, 2400, 800, 1200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotWidth, gotHeight := processor.calculateDimensions(tt.width, tt.height)
			if gotWidth != tt.wantWidth || gotHeight != tt.wantHeight {
				t.Errorf("calculateDimensions() = (%d, %d), want (%d, %d)",
					gotWidth, gotHeight, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestCoverProcessor_Process(t *testing.T) {
	processor := NewCoverProcessor(CoverSettings{MaxWidth: 50, MaxHeight: 50, Quality: 85})

	out, err := processor.Process(bytes.NewReader(encodePNG(t, 100, 200, color.RGBA{255, 0, 0, 255})))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(25, 50) {
		t.Errorf("output size = %v, want (25,50)", got)
	}
}

func TestCoverProcessor_Grayscale(t *testing.T) {
	processor := NewCoverProcessor(CoverSettings{MaxWidth: 50, MaxHeight: 50, Grayscale: true})

	out, err := processor.Process(bytes.NewReader(encodePNG(t, 10, 10, color.RGBA{255, 0, 0, 255})))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if _, ok := img.(*image.Gray); !ok {
		t.Errorf("decoded image is %T, want *image.Gray", img)
	}
}

func TestCoverProcessor_InvalidInput(t *testing.T) {
	processor := NewCoverProcessorForDevice("kindle-basic")
	if _, err := processor.Process(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("Process() should fail on garbage input")
	}
}

func TestCoverProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.jpg")
	// covers are often PNGs saved with a .jpg name
	if err := os.WriteFile(path, encodePNG(t, 20, 30, color.White), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := NewCoverProcessorForDevice("no-such-device").ProcessFile(path)
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("output is not a JPEG: %v", err)
	}

	if _, err := NewCoverProcessorForDevice("").ProcessFile(filepath.Join(t.TempDir(), "missing.jpg")); !os.IsNotExist(err) {
		t.Errorf("ProcessFile() on missing file error = %v, want not-exist", err)
	}
}

func TestCoverProcessor_Placeholder(t *testing.T) {
	device := KindleDevices["kindle-basic"]
	out, err := NewCoverProcessor(device.CoverSettings()).Placeholder()
	if err != nil {
		t.Fatalf("Placeholder() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("placeholder is not a JPEG: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(device.Width, device.Height) {
		t.Errorf("placeholder size = %v, want %dx%d", got, device.Width, device.Height)
	}

	out, err = NewCoverProcessor(CoverSettings{}).Placeholder()
	if err != nil {
		t.Fatalf("Placeholder() with zero settings error = %v", err)
	}
	img, _ = jpeg.Decode(bytes.NewReader(out))
	if got := img.Bounds().Size(); got != image.Pt(600, 800) {
		t.Errorf("fallback placeholder size = %v", got)
	}
}

func BenchmarkCoverProcessor_Process(b *testing.B) {
	data := encodePNG(b, 800, 1200, color.RGBA{10, 20, 30, 255})
	processor := NewCoverProcessorForDevice("kindle-paperwhite")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		processor.Process(bytes.NewReader(data))
	}
}
