package hid

import "time"

// Device represents an opened HID interface capable of report I/O.
// Buffers passed to Write, SendFeature, and GetFeature carry the report ID
// at byte 0, matching the hidapi convention.
type Device interface {
	Write(p []byte) (int, error)                        // send output report
	Read(p []byte) (int, error)                         // read input report, blocking
	ReadTimeout(p []byte, d time.Duration) (int, error) // read input report; 0, nil on timeout
	SendFeature(p []byte) error                         // SET_FEATURE
	GetFeature(p []byte) (int, error)                   // GET_FEATURE, p[0] selects the report
	Product() (string, error)                           // product string; fails once unplugged
	Close() error
}

// Info describes one HID interface of a device. A physical device commonly
// exposes several interfaces sharing a vendor/product id; UsagePage and Usage
// tell them apart.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Product      string
	Manufacturer string
	UsagePage    uint16
	Usage        uint16
	Interface    int
	Bluetooth    bool
}

// Manager enumerates and opens HID devices.
type Manager interface {
	List() ([]Info, error)
	Open(info Info) (Device, error)
}

// NewManager returns the platform HID manager.
func NewManager() (Manager, error) {
	return newManager()
}
