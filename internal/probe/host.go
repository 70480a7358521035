// Package probe implements the fingerprint signals for a plain Go process.
//
// There is no canvas, audio context or WebGL in a server process, so
// those probes report fingerprint.ErrUnsupported. Fonts, battery and media
// devices are read from the filesystem.
package probe

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/watchtower/internal/domain/fingerprint"
	"github.com/okian/watchtower/internal/domain/model"
)

// testFonts is the fixed list of font families checked for presence.
var testFonts = []string{
	"Arial",
	"Verdana",
	"Times New Roman",
	"Courier New",
	"Georgia",
	"Trebuchet MS",
}

// fontFilePrefixes maps each family to normalized file name prefixes it
// ships under, including metric-compatible substitutes.
var fontFilePrefixes = map[string][]string{
	"Arial":           {"arial", "liberationsans"},
	"Verdana":         {"verdana"},
	"Times New Roman": {"timesnewroman", "times", "liberationserif"},
	"Courier New":     {"couriernew", "liberationmono"},
	"Georgia":         {"georgia"},
	"Trebuchet MS":    {"trebuc"},
}

var fontExtensions = []string{".ttf", ".otf", ".ttc", ".dfont"}

// Host reads signals from the local machine.
type Host struct {
	root      string
	fontDirs  []string
	lookupEnv func(string) (string, bool)
}

// New creates a host prober.
func New(opts ...Option) *Host {
	h := &Host{lookupEnv: os.LookupEnv}
	if home, err := os.UserHomeDir(); err == nil {
		h.fontDirs = append(h.fontDirs,
			filepath.Join(home, ".fonts"),
			filepath.Join(home, ".local", "share", "fonts"),
			filepath.Join(home, "Library", "Fonts"),
		)
	}
	h.fontDirs = append(h.fontDirs,
		"/usr/share/fonts",
		"/usr/local/share/fonts",
		"/System/Library/Fonts",
		"/Library/Fonts",
		`C:\Windows\Fonts`,
	)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Probes returns the probe set backed by this host.
func (h *Host) Probes() fingerprint.Probes {
	return fingerprint.Probes{
		Canvas:       unsupported[string],
		Fonts:        h.Fonts,
		WebGLVendor:  unsupported[string],
		Audio:        unsupportedCtx[string],
		Battery:      h.Battery,
		MediaDevices: h.MediaDevices,
	}
}

// Fonts reports which of the test font families are installed.
func (h *Host) Fonts() ([]string, error) {
	found := make(map[string]bool, len(testFonts))
	for _, dir := range h.fontDirs {
		_ = filepath.WalkDir(h.path(dir), func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil //nolint:nilerr // unreadable entries are skipped
			}
			ext := strings.ToLower(filepath.Ext(d.Name()))
			if !slices.Contains(fontExtensions, ext) {
				return nil
			}
			name := normalize(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
			for family, prefixes := range fontFilePrefixes {
				for _, p := range prefixes {
					if strings.HasPrefix(name, p) {
						found[family] = true
					}
				}
			}
			return nil
		})
	}

	fonts := make([]string, 0, len(found))
	for _, family := range testFonts {
		if found[family] {
			fonts = append(fonts, family)
		}
	}
	return fonts, nil
}

// Battery reads the first battery under /sys/class/power_supply.
func (h *Host) Battery(ctx context.Context) (model.Battery, error) {
	supplies, err := os.ReadDir(h.path("/sys/class/power_supply"))
	if err != nil {
		return model.Battery{}, fingerprint.ErrUnsupported
	}
	for _, s := range supplies {
		if err := ctx.Err(); err != nil {
			return model.Battery{}, err
		}
		dir := h.path("/sys/class/power_supply", s.Name())
		if readTrimmed(filepath.Join(dir, "type")) != "Battery" {
			continue
		}
		capacity, err := strconv.ParseFloat(readTrimmed(filepath.Join(dir, "capacity")), 64)
		if err != nil {
			continue
		}
		status := readTrimmed(filepath.Join(dir, "status"))
		b := model.Battery{
			Charging: status == "Charging" || status == "Full",
			Level:    capacity / 100,
		}
		if status == "Full" {
			zero := 0.0
			b.ChargingTime = &zero
		}
		return b, nil
	}
	return model.Battery{}, fingerprint.ErrUnsupported
}

// MediaDevices lists video capture nodes and ALSA PCM devices.
func (h *Host) MediaDevices(ctx context.Context) ([]model.MediaDevice, error) {
	var devices []model.MediaDevice

	videos, _ := filepath.Glob(h.path("/dev", "video*"))
	for _, v := range videos {
		devices = append(devices, model.MediaDevice{
			Kind:     "videoinput",
			DeviceID: filepath.Base(v),
		})
	}

	pcms, _ := filepath.Glob(h.path("/dev/snd", "pcmC*D*"))
	for _, p := range pcms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(p)
		kind := "audiooutput"
		if strings.HasSuffix(name, "c") {
			kind = "audioinput"
		}
		card, _, _ := strings.Cut(strings.TrimPrefix(name, "pcmC"), "D")
		devices = append(devices, model.MediaDevice{
			Kind:     kind,
			DeviceID: name,
			GroupID:  "card" + card,
		})
	}
	return devices, nil
}

func (h *Host) path(elem ...string) string {
	if h.root == "" {
		return filepath.Join(elem...)
	}
	return filepath.Join(append([]string{h.root}, elem...)...)
}

func readTrimmed(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// normalize lowercases s and drops separators so "Times_New_Roman-Bold"
// matches "timesnewroman".
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(s))
}

func unsupported[T any]() (T, error) {
	var zero T
	return zero, fingerprint.ErrUnsupported
}

func unsupportedCtx[T any](context.Context) (T, error) {
	var zero T
	return zero, fingerprint.ErrUnsupported
}
