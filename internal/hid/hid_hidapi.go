//go:build !purego

package hid

import (
	"time"

	hidapi "github.com/sstallion/go-hid"
)

type hidapiManager struct{}

func newManager() (Manager, error) {
	if err := hidapi.Init(); err != nil {
		return nil, err
	}
	return &hidapiManager{}, nil
}

func (m *hidapiManager) List() ([]Info, error) {
	var out []Info
	err := hidapi.Enumerate(hidapi.VendorIDAny, hidapi.ProductIDAny, func(d *hidapi.DeviceInfo) error {
		out = append(out, Info{
			Path:         d.Path,
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Serial:       d.SerialNbr,
			Product:      d.ProductStr,
			Manufacturer: d.MfrStr,
			UsagePage:    d.UsagePage,
			Usage:        d.Usage,
			Interface:    d.InterfaceNbr,
			Bluetooth:    d.BusType == hidapi.BusBluetooth,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *hidapiManager) Open(info Info) (Device, error) {
	d, err := hidapi.OpenPath(info.Path)
	if err != nil {
		return nil, err
	}
	return &hidapiDevice{d: d}, nil
}

type hidapiDevice struct{ d *hidapi.Device }

func (d *hidapiDevice) Write(p []byte) (int, error) { return d.d.Write(p) }
func (d *hidapiDevice) Read(p []byte) (int, error)  { return d.d.Read(p) }

func (d *hidapiDevice) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	return d.d.ReadWithTimeout(p, timeout)
}

func (d *hidapiDevice) SendFeature(p []byte) error {
	_, err := d.d.SendFeatureReport(p)
	return err
}

func (d *hidapiDevice) GetFeature(p []byte) (int, error) { return d.d.GetFeatureReport(p) }
func (d *hidapiDevice) Product() (string, error)         { return d.d.GetProductStr() }
func (d *hidapiDevice) Close() error                     { return d.d.Close() }
