package probe

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/okian/watchtower/internal/domain/fingerprint"
)

// Version is reported in the user agent.
var Version = "dev"

// maxDeviceMemory caps the reported memory in GiB.
const maxDeviceMemory = 8

// Attributes implements fingerprint.Environment from the Go runtime and
// the process environment.
func (h *Host) Attributes() fingerprint.Attributes {
	now := time.Now()
	_, offset := now.Zone()

	attrs := fingerprint.Attributes{
		UserAgent: fmt.Sprintf("watchtower/%s (%s; %s) %s",
			Version, runtime.GOOS, runtime.GOARCH, runtime.Version()),
		Platform:            runtime.GOOS + "/" + runtime.GOARCH,
		HardwareConcurrency: runtime.NumCPU(),
		DeviceMemory:        h.deviceMemory(),
		// Minutes behind UTC, positive west of Greenwich.
		TimezoneOffset: -offset / 60,
		Timezone:       h.timezone(now),
		Plugins:        []string{},
	}

	attrs.Language, attrs.Languages = h.languages()

	if v, ok := h.lookupEnv("DO_NOT_TRACK"); ok && v != "" && v != "0" {
		dnt := "1"
		attrs.DoNotTrack = &dnt
	}
	return attrs
}

// languages derives BCP 47 tags from LANGUAGE, LC_ALL and LANG.
func (h *Host) languages() (string, []string) {
	var tags []string
	add := func(locale string) {
		tag := localeToTag(locale)
		if tag == "" {
			return
		}
		for _, t := range tags {
			if t == tag {
				return
			}
		}
		tags = append(tags, tag)
	}

	if v, ok := h.lookupEnv("LANGUAGE"); ok {
		for _, l := range strings.Split(v, ":") {
			add(l)
		}
	}
	for _, key := range []string{"LC_ALL", "LANG"} {
		if v, ok := h.lookupEnv(key); ok {
			add(v)
		}
	}

	if len(tags) == 0 {
		return "en-US", []string{"en-US"}
	}
	return tags[0], tags
}

// localeToTag turns "en_US.UTF-8" into "en-US". C and POSIX have no tag.
func localeToTag(locale string) string {
	locale, _, _ = strings.Cut(locale, ".")
	locale, _, _ = strings.Cut(locale, "@")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(locale, "_", "-")
}

func (h *Host) timezone(now time.Time) string {
	if tz, ok := h.lookupEnv("TZ"); ok && tz != "" {
		return strings.TrimPrefix(tz, ":")
	}
	if name := readTrimmed(h.path("/etc/timezone")); name != "" {
		return name
	}
	if name := now.Location().String(); name != "Local" {
		return name
	}
	abbrev, _ := now.Zone()
	return abbrev
}

// deviceMemory reads MemTotal and rounds it down to a power of two GiB,
// capped at maxDeviceMemory. Returns nil when unknown.
func (h *Host) deviceMemory() *float64 {
	f, err := os.Open(h.path("/proc/meminfo"))
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "MemTotal:" {
			continue
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil
		}
		gib := kb / (1024 * 1024)
		mem := 0.25
		for mem*2 <= gib && mem < maxDeviceMemory {
			mem *= 2
		}
		return &mem
	}
	return nil
}
