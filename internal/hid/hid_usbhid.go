//go:build purego

package hid

import (
	"time"

	usbhid "rafaelmartins.com/p/usbhid"
)

// Pure-Go backend. usbhid does not expose usage page/usage during
// enumeration, so Info carries zeros there and callers fall back to
// vendor/product id filtering alone.

type usbManager struct{}

func newManager() (Manager, error) { return &usbManager{}, nil }

func (m *usbManager) List() ([]Info, error) {
	devs, err := usbhid.Enumerate(nil)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		out = append(out, Info{
			Path:         d.Path(),
			VendorID:     d.VendorId(),
			ProductID:    d.ProductId(),
			Product:      d.Product(),
			Manufacturer: d.Manufacturer(),
		})
	}
	return out, nil
}

func (m *usbManager) Open(info Info) (Device, error) {
	d, err := usbhid.Get(func(dev *usbhid.Device) bool {
		return dev.Path() == info.Path
	}, true, false)
	if err != nil {
		return nil, err
	}
	return &usbDevice{d: d}, nil
}

type usbDevice struct{ d *usbhid.Device }

func (d *usbDevice) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := d.d.SetOutputReport(p[0], p[1:]); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (d *usbDevice) Read(p []byte) (int, error) {
	_, buf, err := d.d.GetInputReport()
	if err != nil {
		return 0, err
	}
	return copy(p, buf), nil
}

// ReadTimeout falls back to a blocking read; usbhid has no timed variant.
// The event reader tolerates this: shutdown latency grows to one input
// report interval instead of the configured timeout.
func (d *usbDevice) ReadTimeout(p []byte, _ time.Duration) (int, error) {
	return d.Read(p)
}

func (d *usbDevice) SendFeature(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return d.d.SetFeatureReport(p[0], p[1:])
}

func (d *usbDevice) GetFeature(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf, err := d.d.GetFeatureReport(p[0])
	if err != nil {
		return 0, err
	}
	return copy(p[1:], buf) + 1, nil
}

func (d *usbDevice) Product() (string, error) { return d.d.Product(), nil }
func (d *usbDevice) Close() error             { return d.d.Close() }
