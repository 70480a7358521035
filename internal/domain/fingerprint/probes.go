package fingerprint

import (
	"context"

	"github.com/okian/watchtower/internal/domain/model"
)

// Attributes are the environment values read without a failure path.
type Attributes struct {
	UserAgent           string
	Language            string
	Languages           []string
	Platform            string
	HardwareConcurrency int
	DeviceMemory        *float64
	ScreenResolution    string
	ColorDepth          int
	TimezoneOffset      int
	Timezone            string
	TouchSupport        bool
	CookieEnabled       bool
	LocalStorage        bool
	SessionStorage      bool
	IndexedDB           bool
	Plugins             []string
	DoNotTrack          *string
}

// Environment provides the synchronous attributes of the host.
type Environment interface {
	Attributes() Attributes
}

// Page identifies the page the agent is bound to.
type Page struct {
	URL      string
	Referrer string
}

// Probes are the fallible identity signals. A nil probe is treated as
// unsupported. Probes may return an error or panic; either only nulls
// their own field.
type Probes struct {
	// Synchronous probes run inline.
	Canvas      func() (string, error)
	Fonts       func() ([]string, error)
	WebGLVendor func() (string, error)

	// Asynchronous probes run concurrently and honour ctx.
	Audio        func(ctx context.Context) (string, error)
	Battery      func(ctx context.Context) (model.Battery, error)
	MediaDevices func(ctx context.Context) ([]model.MediaDevice, error)
}

// Probe names, used as metric and log labels.
const (
	ProbeCanvas       = "canvas"
	ProbeFonts        = "fonts"
	ProbeWebGL        = "webgl"
	ProbeAudio        = "audio"
	ProbeBattery      = "battery"
	ProbeMediaDevices = "media_devices"
)
