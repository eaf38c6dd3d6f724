package transport

import (
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/internal/hid"
)

// Known vendor/product IDs. The registry is data, not code: supporting a new
// board is one Add call.
const (
	VendorIDMonsGeek uint16 = 0x3151

	ProductIDWiredM1 uint16 = 0x5030
	ProductIDDongle  uint16 = 0x5038
	ProductIDBLEM1   uint16 = 0x5027
)

// HID usage pages and usages that tell the protocol interfaces apart from
// the plain keyboard/mouse interfaces on the same device.
const (
	usagePageVendor  uint16 = 0xFFFF // wired and dongle
	usageCommand     uint16 = 0x0002
	usageEvent       uint16 = 0x0001
	usagePageBLE     uint16 = 0xFF55 // bluetooth vendor interface
	usageBLECommand  uint16 = 0x0202
	usagePageGeneric uint16 = 0x0001
	usageKeyboard    uint16 = 0x0006
)

// RegistryEntry binds one VID/PID pair to the link kind its command
// interface speaks.
type RegistryEntry struct {
	VendorID  uint16
	ProductID uint16
	Kind      Kind
}

// Registry maps VID/PID pairs to link kinds.
type Registry struct {
	entries []RegistryEntry
}

// DefaultRegistry returns the known MonsGeek/Akko devices.
func DefaultRegistry() *Registry {
	return &Registry{entries: []RegistryEntry{
		{VendorIDMonsGeek, ProductIDWiredM1, KindWired},
		{VendorIDMonsGeek, ProductIDDongle, KindDongle},
		{VendorIDMonsGeek, ProductIDBLEM1, KindBluetooth},
	}}
}

func (r *Registry) Add(e RegistryEntry) { r.entries = append(r.entries, e) }

func (r *Registry) Lookup(vid, pid uint16) (Kind, bool) {
	for _, e := range r.entries {
		if e.VendorID == vid && e.ProductID == pid {
			return e.Kind, true
		}
	}
	return 0, false
}

// Discovery enumerates registered devices and opens them as Clients.
type Discovery struct {
	mgr      hid.Manager
	registry *Registry
}

// NewDiscovery opens the platform HID manager with the default registry.
func NewDiscovery() (*Discovery, error) {
	mgr, err := hid.NewManager()
	if err != nil {
		return nil, errors.Wrap(err, "discovery: hid init")
	}
	return NewDiscoveryWith(mgr, DefaultRegistry()), nil
}

// NewDiscoveryWith wires an explicit manager and registry, used by tests and
// by callers that add custom devices.
func NewDiscoveryWith(mgr hid.Manager, registry *Registry) *Discovery {
	return &Discovery{mgr: mgr, registry: registry}
}

// isCommandInterface reports whether info is the protocol command interface
// for the given kind. Backends that cannot report usages enumerate with
// both fields zero; those pass on VID/PID alone.
func isCommandInterface(info hid.Info, kind Kind) bool {
	if info.UsagePage == 0 && info.Usage == 0 {
		return true
	}
	if kind == KindBluetooth {
		return info.UsagePage == usagePageBLE && info.Usage == usageBLECommand
	}
	return info.UsagePage == usagePageVendor && info.Usage == usageCommand
}

// isInputInterface reports whether info carries vendor event reports for the
// given kind.
func isInputInterface(info hid.Info, kind Kind) bool {
	if kind == KindBluetooth {
		return info.UsagePage == usagePageGeneric && info.Usage == usageKeyboard
	}
	return info.UsagePage == usagePageVendor && info.Usage == usageEvent
}

// List returns one descriptor per registered device found, keyed on the
// command interface. A dongle is listed whether or not a keyboard is paired;
// pairing state shows up when the device is probed.
func (d *Discovery) List() ([]DeviceDescriptor, error) {
	infos, err := d.mgr.List()
	if err != nil {
		return nil, errors.Wrap(err, "discovery: enumerate")
	}

	var out []DeviceDescriptor
	for _, info := range infos {
		kind, ok := d.registry.Lookup(info.VendorID, info.ProductID)
		if !ok {
			continue
		}
		if info.Bluetooth {
			kind = KindBluetooth
		}
		if !isCommandInterface(info, kind) {
			continue
		}
		out = append(out, DeviceDescriptor{
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Kind:      kind,
			Path:      info.Path,
			Serial:    info.Serial,
			Product:   info.Product,
			Dongle:    kind == KindDongle,
		})
	}
	slog.Debug("discovery list", slog.Int("devices", len(out)))
	return out, nil
}

// Open opens a listed device and returns a flow-controlled client. The
// device's input interface is opened too when present; without it the
// client still works, just without events.
func (d *Discovery) Open(desc DeviceDescriptor) (*Client, error) {
	infos, err := d.mgr.List()
	if err != nil {
		return nil, errors.Wrap(err, "discovery: enumerate")
	}

	var cmdInfo *hid.Info
	var inputInfo *hid.Info
	for i := range infos {
		info := infos[i]
		if info.VendorID != desc.VendorID || info.ProductID != desc.ProductID {
			continue
		}
		if info.Path == desc.Path {
			cmdInfo = &infos[i]
		} else if isInputInterface(info, desc.Kind) && inputInfo == nil {
			inputInfo = &infos[i]
		}
	}
	if cmdInfo == nil {
		return nil, errors.Wrapf(ErrDeviceNotFound, "open %s", desc.Kind)
	}

	cmdDev, err := d.mgr.Open(*cmdInfo)
	if err != nil {
		return nil, errors.Wrapf(err, "discovery: open %s command interface", desc.Kind)
	}

	var inputDev hid.Device
	if inputInfo != nil {
		inputDev, err = d.mgr.Open(*inputInfo)
		if err != nil {
			// Command I/O still works; events are best effort.
			slog.Warn("input interface open failed",
				slog.String("transport", desc.Kind.String()), slog.Any("error", err))
			inputDev = nil
		}
	}

	var backend Backend
	switch desc.Kind {
	case KindDongle:
		backend = NewDongle(cmdDev, inputDev, desc)
	case KindBluetooth:
		backend = NewBluetooth(cmdDev, inputDev, desc)
	case KindRemote:
		cmdDev.Close()
		if inputDev != nil {
			inputDev.Close()
		}
		backend = NewRemote(desc)
	default:
		backend = NewWired(cmdDev, inputDev, desc)
	}
	return NewClient(backend), nil
}

// ProbedDevice pairs a descriptor with the result of a liveness probe.
type ProbedDevice struct {
	Descriptor DeviceDescriptor
	Info       *ProbeInfo
	Responsive bool
}

// Probe lists every registered device and asks each for its identity. An
// unresponsive entry (dongle with no keyboard paired, device asleep) is
// still returned, with Responsive false.
func (d *Discovery) Probe() ([]ProbedDevice, error) {
	descs, err := d.List()
	if err != nil {
		return nil, err
	}

	out := make([]ProbedDevice, 0, len(descs))
	for _, desc := range descs {
		pd := ProbedDevice{Descriptor: desc}
		client, err := d.Open(desc)
		if err != nil {
			slog.Debug("probe open failed",
				slog.String("transport", desc.Kind.String()), slog.Any("error", err))
			out = append(out, pd)
			continue
		}
		if info, err := client.Probe(); err == nil {
			pd.Info = info
			pd.Responsive = true
		}
		client.Close()
		out = append(out, pd)
	}
	return out, nil
}

// preference ranks links when several reach the same keyboard: a live
// wireless link means the user chose wireless, and bluetooth means no
// dongle is occupying a port.
func preference(k Kind) int {
	switch k {
	case KindBluetooth:
		return 0
	case KindDongle:
		return 1
	case KindWired:
		return 2
	}
	return 3
}

// OpenPreferred probes everything and opens the best candidate: responsive
// devices first, then by link preference. ErrDeviceNotFound when nothing
// matched at all.
func (d *Discovery) OpenPreferred() (*Client, error) {
	probed, err := d.Probe()
	if err != nil {
		return nil, err
	}
	if len(probed) == 0 {
		return nil, ErrDeviceNotFound
	}

	sort.SliceStable(probed, func(i, j int) bool {
		if probed[i].Responsive != probed[j].Responsive {
			return probed[i].Responsive
		}
		return preference(probed[i].Descriptor.Kind) < preference(probed[j].Descriptor.Kind)
	})

	var lastErr error
	for _, pd := range probed {
		client, err := d.Open(pd.Descriptor)
		if err != nil {
			lastErr = err
			continue
		}
		return client, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrDeviceNotFound
}
