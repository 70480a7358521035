package model

// ProfilePath is the collection path the profile is posted to.
const ProfilePath = "/fingerprint"

// Battery mirrors the fields read from the battery status probe.
type Battery struct {
	Charging        bool     `json:"charging"`
	Level           float64  `json:"level"`
	ChargingTime    *float64 `json:"chargingTime"`
	DischargingTime *float64 `json:"dischargingTime"`
}

// MediaDevice describes one enumerated input or output device.
type MediaDevice struct {
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	DeviceID string `json:"deviceId"`
	GroupID  string `json:"groupId"`
}

// Profile is the wire body of POST /fingerprint. Every probe-backed
// field is nullable: nil means the probe failed or is unsupported.
type Profile struct {
	SessionID string `json:"session_id"`

	// Synchronous environment attributes.
	UserAgent           string   `json:"user_agent"`
	Language            string   `json:"language"`
	Languages           []string `json:"languages"`
	Platform            string   `json:"platform"`
	HardwareConcurrency int      `json:"hardware_concurrency"`
	DeviceMemory        *float64 `json:"device_memory"`
	ScreenResolution    string   `json:"screen_resolution"`
	ColorDepth          int      `json:"color_depth"`
	TimezoneOffset      int      `json:"timezone_offset"`
	Timezone            string   `json:"timezone"`
	TouchSupport        bool     `json:"touch_support"`
	CookieEnabled       bool     `json:"cookie_enabled"`
	LocalStorage        bool     `json:"local_storage"`
	SessionStorage      bool     `json:"session_storage"`
	IndexedDB           bool     `json:"indexed_db"`
	Plugins             []string `json:"plugins"`
	DoNotTrack          *string  `json:"do_not_track"`

	// Probe results.
	CanvasFingerprint *string       `json:"canvas_fingerprint"`
	AudioFingerprint  *string       `json:"audio_fingerprint"`
	Fonts             []string      `json:"fonts"`
	Battery           *Battery      `json:"battery"`
	MediaDevices      []MediaDevice `json:"media_devices"`
	WebGLVendor       *string       `json:"webgl_vendor"`

	// Digest is a keyed hash over the device attributes above; it is
	// stable across sessions of the same device.
	Digest string `json:"digest"`

	// Page context.
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Referrer  string `json:"ref"`
}
