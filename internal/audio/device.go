package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// Device describes one capture device available to the worker. Adapted
// from the teacher's DeviceInfo/ListDevices, replacing the teacher's
// positional "capture-%d" ID (unstable across reboots if devices enumerate
// in a different order) with one slugified from the device name, stable as
// long as the name itself doesn't change.
type Device struct {
	ID        string
	Name      string
	IsDefault bool
}

func (d Device) String() string {
	marker := ""
	if d.IsDefault {
		marker = " [default]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, marker)
}

func slugifyDeviceName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// ListDevices enumerates capture devices, disambiguating duplicate slugs
// (two devices sharing a name) with a numeric suffix.
func ListDevices() ([]Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize malgo context: %w", err)
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate capture devices: %w", err)
	}

	seen := make(map[string]int)
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		slug := slugifyDeviceName(info.Name())
		if slug == "" {
			slug = "device"
		}
		if n := seen[slug]; n > 0 {
			seen[slug]++
			slug = fmt.Sprintf("%s-%d", slug, n+1)
		} else {
			seen[slug] = 1
		}

		devices = append(devices, Device{
			ID:        slug,
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}

	return devices, nil
}

// DefaultDevice returns the device flagged as default, or the first device
// if none is flagged.
func DefaultDevice() (*Device, error) {
	devices, err := ListDevices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.IsDefault {
			return &d, nil
		}
	}
	if len(devices) > 0 {
		return &devices[0], nil
	}
	return nil, fmt.Errorf("no capture devices found")
}

// FindDeviceByID returns the device with the given stable ID.
func FindDeviceByID(id string) (*Device, error) {
	devices, err := ListDevices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", id)
}
