package integrations

import (
	"strings"
	"testing"
)

func TestGetDeviceProfile(t *testing.T) {
	tests := []struct {
		name     string
		deviceID string
		wantOK   bool
	}{
		{"valid paperwhite", "kindle-paperwhite3", true},
		{"valid oasis", "kindle-oasis", true},
		{"invalid device", "invalid-device", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, ok := GetDeviceProfile(tt.deviceID)
			if ok != tt.wantOK {
				t.Errorf("GetDeviceProfile() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && device.Name == "" {
				t.Error("Device name should not be empty")
			}
		})
	}
}

func TestDefaultDeviceExists(t *testing.T) {
	if _, ok := GetDeviceProfile(DefaultDevice); !ok {
		t.Fatalf("default device %q missing from profiles", DefaultDevice)
	}
}

func TestKindleDevice_CoverSettings(t *testing.T) {
	device := KindleDevice{
		Name:      "Test Kindle",
		Width:     1072,
		Height:    1448,
		DPI:       300,
		Grayscale: true,
	}

	settings := device.CoverSettings()

	if settings.MaxWidth != device.Width {
		t.Errorf("MaxWidth = %d, want %d", settings.MaxWidth, device.Width)
	}
	if settings.MaxHeight != device.Height {
		t.Errorf("MaxHeight = %d, want %d", settings.MaxHeight, device.Height)
	}
	if !settings.Grayscale {
		t.Error("Settings should be grayscale for e-ink device")
	}
	if settings.Quality != 90 {
		t.Errorf("Quality = %d, want 90 for 300 DPI", settings.Quality)
	}
}

func TestListDevices(t *testing.T) {
	devices := ListDevices()

	if len(devices) != len(KindleDevices) {
		t.Errorf("ListDevices() returned %d entries, want %d", len(devices), len(KindleDevices))
	}
	for i, device := range devices {
		if !strings.Contains(device, ": ") {
			t.Errorf("Device entry should contain ': ' separator: %s", device)
		}
		if i > 0 && devices[i-1] > device {
			t.Errorf("ListDevices() not sorted at %d", i)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    KindleFormat
		wantErr bool
	}{
		{"", FormatMOBI, false},
		{"mobi", FormatMOBI, false},
		{"EPUB", FormatEPUB, false},
		{" epub ", FormatEPUB, false},
		{"azw3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if FormatMOBI.Ext() != ".mobi" {
		t.Errorf("Ext() = %q", FormatMOBI.Ext())
	}
}
