package transport

import (
	"encoding/binary"
	"time"
)

// Notification type bytes carried in vendor input reports. These are a
// separate namespace from command bytes: 0x05 is SET_LEDONOFF on the feature
// endpoint but "LED effect speed changed" on the input endpoint.
const (
	notifWake        byte = 0x00
	notifProfile     byte = 0x01
	notifKbFunc      byte = 0x03
	notifLEDMode     byte = 0x04
	notifLEDSpeed    byte = 0x05
	notifBrightness  byte = 0x06
	notifLEDColor    byte = 0x07
	notifSettingsAck byte = 0x0F
	notifKeyDepth    byte = 0x1B
	notifBattery     byte = 0x88
)

// Input report IDs on the USB telemetry interface.
const (
	reportIDMouse       byte = 0x02
	reportIDVendorEvent byte = 0x05
)

// VendorEvent is one parsed keyboard notification. The set is closed: every
// implementation lives in this file, and frames that match nothing are
// surfaced as RawEvent so no telemetry is silently dropped.
type VendorEvent interface {
	// Kind returns a short stable name for logging and dispatch.
	Kind() string
}

// KeyDepth is one hall-effect depth sample for a single key.
type KeyDepth struct {
	KeyIndex byte
	DepthRaw uint16
}

// MagnetismStream marks the start or stop of key-depth streaming.
type MagnetismStream struct {
	Started bool
}

// Wake is sent when the keyboard returns from sleep.
type Wake struct{}

// ProfileChange is sent when the active profile switches via Fn+F9..F12.
type ProfileChange struct {
	Profile byte
}

// SettingsAck brackets a settings change: Started true when it begins,
// false when it completes.
type SettingsAck struct {
	Started bool
}

// LEDEffectMode is sent when the effect changes via Fn+Home/PgUp/End/PgDn.
type LEDEffectMode struct {
	Effect byte
}

// LEDEffectSpeed is sent when the effect speed changes via Fn+Left/Right.
type LEDEffectSpeed struct {
	Speed byte
}

// BrightnessLevel is sent when brightness changes via Fn+Up/Down.
type BrightnessLevel struct {
	Level byte
}

// LEDColor is sent when the base color cycles via Fn+Backslash.
type LEDColor struct {
	Color byte
}

// WinLockToggle is sent when the Windows key lock flips via Fn+LWin.
type WinLockToggle struct {
	Locked bool
}

// WasdSwapToggle is sent when WASD/arrow swap flips via Fn+W.
type WasdSwapToggle struct {
	Swapped bool
}

// BacklightToggle is sent when the backlight flips via Fn+L.
type BacklightToggle struct{}

// FnLayerToggle is sent when the Fn layer switches via Fn+Alt.
type FnLayerToggle struct {
	Layer byte
}

// DialModeToggle is sent when the dial button switches modes.
type DialModeToggle struct{}

// BatteryStatus is pushed by the dongle with the keyboard's battery state.
type BatteryStatus struct {
	Level    byte
	Charging bool
	Online   bool
}

// MouseReport carries the keyboard's built-in pointing function (dial mouse
// mode, gaming macros).
type MouseReport struct {
	Buttons byte
	X       int16
	Y       int16
	Wheel   int16
}

// RawEvent holds a frame no parser recognized, kept verbatim for debugging.
type RawEvent struct {
	Data []byte
}

func (KeyDepth) Kind() string        { return "key-depth" }
func (MagnetismStream) Kind() string { return "magnetism-stream" }
func (Wake) Kind() string            { return "wake" }
func (ProfileChange) Kind() string   { return "profile-change" }
func (SettingsAck) Kind() string     { return "settings-ack" }
func (LEDEffectMode) Kind() string   { return "led-effect-mode" }
func (LEDEffectSpeed) Kind() string  { return "led-effect-speed" }
func (BrightnessLevel) Kind() string { return "brightness-level" }
func (LEDColor) Kind() string        { return "led-color" }
func (WinLockToggle) Kind() string   { return "win-lock" }
func (WasdSwapToggle) Kind() string  { return "wasd-swap" }
func (BacklightToggle) Kind() string { return "backlight" }
func (FnLayerToggle) Kind() string   { return "fn-layer" }
func (DialModeToggle) Kind() string  { return "dial-mode" }
func (BatteryStatus) Kind() string   { return "battery-status" }
func (MouseReport) Kind() string     { return "mouse-report" }
func (RawEvent) Kind() string        { return "raw" }

// TimestampedEvent pairs an event with the time elapsed since the owning
// transport was opened. The elapsed clock orders events across consumers
// without wall-clock synchronization.
type TimestampedEvent struct {
	Event   VendorEvent
	Elapsed time.Duration
}

// ParseUSBEvent parses a vendor input report from the wired or dongle
// telemetry interface. The framing is identical for both:
//
//	[0x02, buttons, 0, x_lo, x_hi, y_lo, y_hi, wheel_lo, wheel_hi]  mouse
//	[0x05, type, value, ...]                                        vendor event
func ParseUSBEvent(data []byte) VendorEvent {
	if len(data) == 0 {
		return RawEvent{Data: append([]byte(nil), data...)}
	}

	if data[0] == reportIDMouse && len(data) >= 7 {
		m := MouseReport{
			Buttons: data[1],
			X:       int16(binary.LittleEndian.Uint16(data[3:5])),
			Y:       int16(binary.LittleEndian.Uint16(data[5:7])),
		}
		if len(data) >= 9 {
			m.Wheel = int16(binary.LittleEndian.Uint16(data[7:9]))
		}
		return m
	}

	payload := data
	if data[0] == reportIDVendorEvent && len(data) > 1 {
		payload = data[1:]
	}
	return parseEventPayload(payload, data)
}

// ParseBLEEvent parses a Bluetooth input report. BLE wraps the USB payload
// with an extra marker: [0x06, 0x66, type, value, ...]. USB-style frames are
// accepted as a fallback because some firmware forwards them unchanged.
func ParseBLEEvent(data []byte) VendorEvent {
	if len(data) < 3 {
		return RawEvent{Data: append([]byte(nil), data...)}
	}

	var payload []byte
	switch {
	case data[0] == bleReportID && data[1] == bleMarkerEvent:
		payload = data[2:]
	case data[0] == reportIDVendorEvent:
		payload = data[1:]
	case data[0] == bleReportID:
		payload = data[1:]
	default:
		return RawEvent{Data: append([]byte(nil), data...)}
	}
	return parseEventPayload(payload, data)
}

func parseEventPayload(payload, original []byte) VendorEvent {
	if len(payload) == 0 {
		return RawEvent{Data: append([]byte(nil), original...)}
	}

	var value byte
	if len(payload) > 1 {
		value = payload[1]
	}

	switch payload[0] {
	case notifWake:
		if allZero(payload[1:]) {
			return Wake{}
		}
	case notifProfile:
		return ProfileChange{Profile: value}
	case notifKbFunc:
		return parseKbFunc(payload)
	case notifLEDMode:
		return LEDEffectMode{Effect: value}
	case notifLEDSpeed:
		return LEDEffectSpeed{Speed: value}
	case notifBrightness:
		return BrightnessLevel{Level: value}
	case notifLEDColor:
		return LEDColor{Color: value}
	case notifSettingsAck:
		// [0x0F, 0x01, 0x00] and [0x0F, 0x00, 0x00] bracket key-depth
		// streaming; other values acknowledge settings changes.
		if len(payload) >= 3 && payload[2] == 0x00 && value <= 0x01 {
			return MagnetismStream{Started: value == 0x01}
		}
		return SettingsAck{Started: value != 0}
	case notifKeyDepth:
		if len(payload) >= 5 {
			return KeyDepth{
				DepthRaw: binary.LittleEndian.Uint16(payload[1:3]),
				KeyIndex: payload[3],
			}
		}
	case notifBattery:
		if len(payload) >= 5 {
			return BatteryStatus{
				Level:    payload[3],
				Charging: payload[4]&0x02 != 0,
				Online:   payload[4]&0x01 != 0,
			}
		}
	}
	return RawEvent{Data: append([]byte(nil), original...)}
}

// parseKbFunc decodes the keyboard-function notification (type 0x03):
// byte 1 is a context-dependent category, byte 2 the action code.
func parseKbFunc(payload []byte) VendorEvent {
	var category, action byte
	if len(payload) > 1 {
		category = payload[1]
	}
	if len(payload) > 2 {
		action = payload[2]
	}

	switch action {
	case 0x01:
		return WinLockToggle{Locked: category != 0}
	case 0x03:
		return WasdSwapToggle{Swapped: category == 8}
	case 0x08:
		return FnLayerToggle{Layer: category}
	case 0x09:
		return BacklightToggle{}
	case 0x11:
		return DialModeToggle{}
	}
	return RawEvent{Data: append([]byte(nil), payload...)}
}

func allZero(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}
