package proto

// Command bytes from the vendor feature protocol. SET commands occupy
// 0x01-0x65, their GET counterparts sit 0x80 higher.
const (
	CmdSetReset            byte = 0x01
	CmdSetReport           byte = 0x03
	CmdSetProfile          byte = 0x04
	CmdSetDebounce         byte = 0x06
	CmdSetLEDParam         byte = 0x07
	CmdSetSideLEDParam     byte = 0x08
	CmdSetKbOption         byte = 0x09
	CmdSetKeyMatrix        byte = 0x0A
	CmdSetMacro            byte = 0x0B
	CmdSetUserPic          byte = 0x0C
	CmdSetAudioViz         byte = 0x0D
	CmdSetScreenColor      byte = 0x0E
	CmdSetFn               byte = 0x10
	CmdSetSleepTime        byte = 0x11
	CmdSetUserGif          byte = 0x12
	CmdSetAutoOS           byte = 0x17
	CmdSetMagnetismReport  byte = 0x1B
	CmdSetMagnetismCal     byte = 0x1C
	CmdSetKeyMagnetismMode byte = 0x1D
	CmdSetMagnetismMaxCal  byte = 0x1E
	CmdSetMultiMagnetism   byte = 0x65

	CmdGetRev              byte = 0x80
	CmdGetReport           byte = 0x83
	CmdGetProfile          byte = 0x84
	CmdGetLEDOnOff         byte = 0x85
	CmdGetDebounce         byte = 0x86
	CmdGetLEDParam         byte = 0x87
	CmdGetSideLEDParam     byte = 0x88
	CmdGetKbOption         byte = 0x89
	CmdGetKeyMatrix        byte = 0x8A
	CmdGetMacro            byte = 0x8B
	CmdGetUserPic          byte = 0x8C
	CmdGetUSBVersion       byte = 0x8F
	CmdGetFn               byte = 0x90
	CmdGetSleepTime        byte = 0x91
	CmdGetAutoOS           byte = 0x97
	CmdGetKeyMagnetismMode byte = 0x9D
	CmdGetOLEDVersion      byte = 0xAD
	CmdGetMLEDVersion      byte = 0xAE
	CmdGetMultiMagnetism   byte = 0xE5
	CmdGetFeatureList      byte = 0xE6
	CmdGetCalibration      byte = 0xFE

	// CmdDongleStatus is handled locally by the 2.4GHz dongle: it answers
	// with battery/link state without a round trip to the keyboard.
	CmdDongleStatus byte = 0xF7
	// CmdDongleFlush is the no-op that makes the dongle promote its next
	// buffered RF reply into the readable feature-report slot.
	CmdDongleFlush byte = 0xFC

	// StatusSuccess is the acknowledgement byte devices place after the
	// echoed command on plain SET responses.
	StatusSuccess byte = 0xAA
)

var commandNames = map[byte]string{
	CmdSetReset:            "SET_RESET",
	CmdSetReport:           "SET_REPORT",
	CmdSetProfile:          "SET_PROFILE",
	CmdSetDebounce:         "SET_DEBOUNCE",
	CmdSetLEDParam:         "SET_LEDPARAM",
	CmdSetSideLEDParam:     "SET_SLEDPARAM",
	CmdSetKbOption:         "SET_KBOPTION",
	CmdSetKeyMatrix:        "SET_KEYMATRIX",
	CmdSetMacro:            "SET_MACRO",
	CmdSetUserPic:          "SET_USERPIC",
	CmdSetAudioViz:         "SET_AUDIO_VIZ",
	CmdSetScreenColor:      "SET_SCREEN_COLOR",
	CmdSetFn:               "SET_FN",
	CmdSetSleepTime:        "SET_SLEEPTIME",
	CmdSetUserGif:          "SET_USERGIF",
	CmdSetAutoOS:           "SET_AUTOOS_EN",
	CmdSetMagnetismReport:  "SET_MAGNETISM_REPORT",
	CmdSetMagnetismCal:     "SET_MAGNETISM_CAL",
	CmdSetKeyMagnetismMode: "SET_KEY_MAGNETISM_MODE",
	CmdSetMagnetismMaxCal:  "SET_MAGNETISM_MAX_CAL",
	CmdSetMultiMagnetism:   "SET_MULTI_MAGNETISM",
	CmdGetRev:              "GET_REV",
	CmdGetReport:           "GET_REPORT",
	CmdGetProfile:          "GET_PROFILE",
	CmdGetLEDOnOff:         "GET_LEDONOFF",
	CmdGetDebounce:         "GET_DEBOUNCE",
	CmdGetLEDParam:         "GET_LEDPARAM",
	CmdGetSideLEDParam:     "GET_SLEDPARAM",
	CmdGetKbOption:         "GET_KBOPTION",
	CmdGetKeyMatrix:        "GET_KEYMATRIX",
	CmdGetMacro:            "GET_MACRO",
	CmdGetUserPic:          "GET_USERPIC",
	CmdGetUSBVersion:       "GET_USB_VERSION",
	CmdGetFn:               "GET_FN",
	CmdGetSleepTime:        "GET_SLEEPTIME",
	CmdGetAutoOS:           "GET_AUTOOS_EN",
	CmdGetKeyMagnetismMode: "GET_KEY_MAGNETISM_MODE",
	CmdGetOLEDVersion:      "GET_OLED_VERSION",
	CmdGetMLEDVersion:      "GET_MLED_VERSION",
	CmdGetMultiMagnetism:   "GET_MULTI_MAGNETISM",
	CmdGetFeatureList:      "GET_FEATURE_LIST",
	CmdGetCalibration:      "GET_CALIBRATION",
	CmdDongleStatus:        "DONGLE_STATUS",
	CmdDongleFlush:         "DONGLE_FLUSH_NOP",
}

// CommandName returns a human-readable name for a command byte, or "UNKNOWN".
func CommandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return "UNKNOWN"
}
