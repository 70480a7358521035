// Package fingerprint assembles the device profile from independently
// fallible signal probes.
package fingerprint

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/okian/watchtower/internal/domain/model"
	"github.com/okian/watchtower/internal/domain/session"
	"github.com/okian/watchtower/pkg/logger"
	"github.com/okian/watchtower/pkg/metrics"
)

// DefaultProbeTimeout bounds each asynchronous probe.
const DefaultProbeTimeout = 2 * time.Second

// defaultDigestKey is "watchtower.profile.digest" zero-padded to 32 bytes.
var defaultDigestKey = [32]byte{
	'w', 'a', 't', 'c', 'h', 't', 'o', 'w', 'e', 'r', '.',
	'p', 'r', 'o', 'f', 'i', 'l', 'e', '.',
	'd', 'i', 'g', 'e', 's', 't',
}

// Aggregator builds one Profile per call to Aggregate.
type Aggregator struct {
	env       Environment
	page      Page
	probes    Probes
	session   session.ID
	timeout   time.Duration
	digestKey [32]byte
	now       func() time.Time
	log       logger.Logger
}

// New creates an aggregator.
func New(env Environment, page Page, probes Probes, id session.ID, opts ...Option) *Aggregator {
	a := &Aggregator{
		env:       env,
		page:      page,
		probes:    probes,
		session:   id,
		timeout:   DefaultProbeTimeout,
		digestKey: defaultDigestKey,
		now:       time.Now,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate runs every probe and returns the profile once all of them have
// produced a value or failed. It never fails as a whole: a failing probe
// leaves its field nil. Cancelling ctx settles pending async probes as
// failed.
func (a *Aggregator) Aggregate(ctx context.Context) model.Profile {
	began := time.Now()
	attrs := a.env.Attributes()

	p := model.Profile{
		SessionID:           a.session.String(),
		UserAgent:           attrs.UserAgent,
		Language:            attrs.Language,
		Languages:           attrs.Languages,
		Platform:            attrs.Platform,
		HardwareConcurrency: attrs.HardwareConcurrency,
		DeviceMemory:        attrs.DeviceMemory,
		ScreenResolution:    attrs.ScreenResolution,
		ColorDepth:          attrs.ColorDepth,
		TimezoneOffset:      attrs.TimezoneOffset,
		Timezone:            attrs.Timezone,
		TouchSupport:        attrs.TouchSupport,
		CookieEnabled:       attrs.CookieEnabled,
		LocalStorage:        attrs.LocalStorage,
		SessionStorage:      attrs.SessionStorage,
		IndexedDB:           attrs.IndexedDB,
		Plugins:             attrs.Plugins,
		DoNotTrack:          attrs.DoNotTrack,
	}

	// Async probes first so they overlap with the inline ones.
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if v, ok := runAsync(ctx, a, ProbeAudio, a.probes.Audio); ok {
			p.AudioFingerprint = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, ok := runAsync(ctx, a, ProbeBattery, a.probes.Battery); ok {
			p.Battery = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, ok := runAsync(ctx, a, ProbeMediaDevices, a.probes.MediaDevices); ok {
			p.MediaDevices = nonNil(v)
		}
	}()

	if v, ok := runSync(ctx, a, ProbeCanvas, a.probes.Canvas); ok {
		p.CanvasFingerprint = &v
	}
	if v, ok := runSync(ctx, a, ProbeFonts, a.probes.Fonts); ok {
		p.Fonts = nonNil(v)
	}
	if v, ok := runSync(ctx, a, ProbeWebGL, a.probes.WebGLVendor); ok {
		p.WebGLVendor = &v
	}

	wg.Wait()

	p.Digest = a.digest(p)
	p.Timestamp = model.FormatTimestamp(a.now())
	p.URL = a.page.URL
	p.Referrer = a.page.Referrer

	metrics.RecordAggregationLatency(float64(time.Since(began).Milliseconds()))
	return p
}

// digest hashes the device attributes of p. Time and page fields are
// still empty when this runs.
func (a *Aggregator) digest(p model.Profile) string {
	p.SessionID = ""
	raw, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	h, err := blake3.NewKeyed(a.digestKey[:])
	if err != nil {
		return ""
	}
	_, _ = h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}

// runSync calls a synchronous probe with panic isolation.
func runSync[T any](ctx context.Context, a *Aggregator, name string, fn func() (T, error)) (T, bool) {
	var zero T
	if fn == nil {
		a.settle(ctx, name, ErrUnsupported, 0)
		return zero, false
	}
	began := time.Now()
	v, err := guard(func() (T, error) { return fn() })
	a.settle(ctx, name, err, time.Since(began))
	if err != nil {
		return zero, false
	}
	return v, true
}

// runAsync calls an asynchronous probe, racing it against the probe
// timeout and ctx. A probe that loses the race keeps running in the
// background; its late result is discarded.
func runAsync[T any](ctx context.Context, a *Aggregator, name string, fn func(context.Context) (T, error)) (T, bool) {
	var zero T
	if fn == nil {
		a.settle(ctx, name, ErrUnsupported, 0)
		return zero, false
	}

	probeCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	began := time.Now()
	go func() {
		v, err := guard(func() (T, error) { return fn(probeCtx) })
		done <- result{v: v, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-probeCtx.Done():
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			r.err = ErrProbeTimeout
		} else {
			r.err = probeCtx.Err()
		}
	}

	a.settle(ctx, name, r.err, time.Since(began))
	if r.err != nil {
		return zero, false
	}
	return r.v, true
}

// guard converts a panic in fn into ErrProbePanic.
func guard[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrProbePanic, rec)
		}
	}()
	return fn()
}

func (a *Aggregator) settle(ctx context.Context, name string, err error, took time.Duration) {
	metrics.RecordProbeLatency(name, float64(took.Milliseconds()))

	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, ErrUnsupported):
		outcome = metrics.OutcomeNull
	case errors.Is(err, ErrProbeTimeout):
		outcome = metrics.OutcomeTimeout
	case errors.Is(err, ErrProbePanic):
		outcome = metrics.OutcomePanic
	default:
		outcome = metrics.OutcomeFailed
	}
	metrics.RecordProbeResult(name, outcome)

	if err != nil {
		a.log.Debug(ctx, "probe yielded no value",
			logger.String("probe", name),
			logger.String("outcome", outcome),
			logger.Error(err))
	}
}

// nonNil keeps a successful empty result distinguishable from a failed
// probe on the wire ([] versus null).
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
