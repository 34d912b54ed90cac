package integrations

import (
	"fmt"
	"sort"
	"strings"
)

// KindleDevice describes a reader's screen, used to size covers.
type KindleDevice struct {
	Name      string
	Width     int // pixels
	Height    int // pixels
	DPI       int
	Grayscale bool
}

const DefaultDevice = "kindle-paperwhite3"

var KindleDevices = map[string]KindleDevice{
	"kindle-basic": {
		Name:      "Kindle Basic (10th gen)",
		Width:     600,
		Height:    800,
		DPI:       167,
		Grayscale: true,
	},
	"kindle-paperwhite": {
		Name:      "Kindle Paperwhite 1/2",
		Width:     758,
		Height:    1024,
		DPI:       212,
		Grayscale: true,
	},
	"kindle-paperwhite3": {
		Name:      "Kindle Paperwhite 3/4",
		Width:     1072,
		Height:    1448,
		DPI:       300,
		Grayscale: true,
	},
	"kindle-voyage": {
		Name:      "Kindle Voyage",
		Width:     1072,
		Height:    1448,
		DPI:       300,
		Grayscale: true,
	},
	"kindle-oasis": {
		Name:      "Kindle Oasis",
		Width:     1264,
		Height:    1680,
		DPI:       300,
		Grayscale: true,
	},
	"kindle-scribe": {
		Name:      "Kindle Scribe",
		Width:     1860,
		Height:    2480,
		DPI:       300,
		Grayscale: true,
	},
	"kindle-fire-hd": {
		Name:      "Kindle Fire HD 7",
		Width:     800,
		Height:    1280,
		DPI:       216,
		Grayscale: false,
	},
}

// GetDeviceProfile returns the device profile for a given device ID
func GetDeviceProfile(deviceID string) (KindleDevice, bool) {
	device, ok := KindleDevices[deviceID]
	return device, ok
}

// ListDevices returns "id: name" lines sorted by id.
func ListDevices() []string {
	devices := make([]string, 0, len(KindleDevices))
	for id, device := range KindleDevices {
		devices = append(devices, id+": "+device.Name)
	}
	sort.Strings(devices)
	return devices
}

// CoverSettings returns how covers should be prepared for the device.
func (d KindleDevice) CoverSettings() CoverSettings {
	s := CoverSettings{
		MaxWidth:  d.Width,
		MaxHeight: d.Height,
		Quality:   85,
		Grayscale: d.Grayscale,
	}
	if d.DPI >= 300 {
		s.Quality = 90
	}
	return s
}

// KindleFormat is the output format of a conversion.
type KindleFormat string

const (
	FormatMOBI KindleFormat = "mobi" // converted remotely
	FormatEPUB KindleFormat = "epub" // built locally
)

func ParseFormat(s string) (KindleFormat, error) {
	switch KindleFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatMOBI:
		return FormatMOBI, nil
	case FormatEPUB:
		return FormatEPUB, nil
	}
	return "", fmt.Errorf("unsupported format %q (want mobi or epub)", s)
}

// Ext returns the file extension including the dot.
func (f KindleFormat) Ext() string {
	return "." + string(f)
}
