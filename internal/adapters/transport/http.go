// Package transport ships payloads to the collection endpoint.
//
// Three delivery modes share one serialization (JSON, optionally gzip):
// Send reports the outcome, SendAsync fires and forgets on the caller's
// context, and SendGuaranteed serializes immediately and hands the request
// to a process-owned beacon queue that outlives the page.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/net/http2"

	"github.com/okian/watchtower/internal/adapters/mq/queue"
	"github.com/okian/watchtower/internal/adapters/mq/worker"
	"github.com/okian/watchtower/pkg/logger"
	"github.com/okian/watchtower/pkg/metrics"
)

// Delivery modes, used as metric labels.
const (
	ModeSync   = "sync"
	ModeAsync  = "async"
	ModeBeacon = "beacon"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultQueueSize = 64
	maxDrainBytes    = 64 << 10
)

// HTTP delivers payloads with POST requests.
type HTTP struct {
	endpoint  string
	client    *http.Client
	timeout   time.Duration
	compress  bool
	http2     bool
	queueSize int
	log       logger.Logger

	beacons *queue.InMemoryQueue
	worker  *worker.BeaconWorker
	// stop cancels the beacon worker's context, which is independent of
	// any page context.
	stop context.CancelFunc

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
	once     sync.Once
	closeErr error
}

// New creates a transport posting to endpoint and starts its beacon
// worker. Close must be called to release it.
func New(endpoint string, opts ...Option) (*HTTP, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	t := &HTTP{
		endpoint:  strings.TrimRight(endpoint, "/"),
		timeout:   defaultTimeout,
		queueSize: defaultQueueSize,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.client == nil {
		rt := http.DefaultTransport.(*http.Transport).Clone()
		if t.http2 {
			if err := http2.ConfigureTransport(rt); err != nil {
				return nil, fmt.Errorf("configure http2: %w", err)
			}
		}
		t.client = &http.Client{Transport: rt, Timeout: t.timeout}
	}

	t.beacons = queue.NewInMemoryQueue(queue.WithCapacity(t.queueSize))
	t.worker = worker.NewBeaconWorker(t.beacons, t, worker.WithLogger(t.log))

	ctx, cancel := context.WithCancel(context.Background())
	t.stop = cancel
	go t.worker.Run(ctx)

	return t, nil
}

// Send posts payload to path and reports the outcome. The error is nil or
// a *DeliveryError.
func (t *HTTP) Send(ctx context.Context, path string, payload any) error {
	return t.send(ctx, path, payload, ModeSync)
}

// SendAsync posts payload on a background goroutine bound to ctx. The
// outcome is only visible in metrics and debug logs.
func (t *HTTP) SendAsync(ctx context.Context, path string, payload any) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		metrics.RecordDelivery(path, ModeAsync, metrics.OutcomeRejected)
		return
	}

	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		// Fire-and-forget: the failure has already been counted and logged.
		_ = t.send(ctx, path, payload, ModeAsync)
	}()
}

// SendGuaranteed serializes payload now and queues it for delivery that
// survives the caller's context. Returns whether the request was
// accepted; acceptance is not a delivery confirmation.
func (t *HTTP) SendGuaranteed(path string, payload any) bool {
	body, encoding, err := t.encode(payload)
	if err != nil {
		metrics.RecordDelivery(path, ModeBeacon, metrics.OutcomeFailed)
		t.log.Warn(context.Background(), "beacon payload not serializable",
			logger.String("path", path), logger.Error(err))
		return false
	}

	err = t.beacons.Enqueue(queue.Beacon{Path: path, Body: body, Encoding: encoding})
	if err != nil {
		metrics.RecordDelivery(path, ModeBeacon, metrics.OutcomeRejected)
		t.log.Debug(context.Background(), "beacon rejected",
			logger.String("path", path), logger.Error(err))
		return false
	}
	return true
}

// Post delivers one queued beacon. It is called by the beacon worker.
func (t *HTTP) Post(ctx context.Context, b queue.Beacon) error {
	err := t.post(ctx, b.Path, b.Body, b.Encoding, ModeBeacon)
	metrics.UpdateBeaconQueueSize(t.beacons.Len())
	return err
}

// Close stops accepting beacons and waits, bounded by ctx, for queued
// beacons and in-flight async sends to finish.
func (t *HTTP) Close(ctx context.Context) error {
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()

		_ = t.beacons.Close()
		var errs []error
		if err := t.worker.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}

		idle := make(chan struct{})
		go func() {
			t.inflight.Wait()
			close(idle)
		}()
		select {
		case <-idle:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("waiting for async sends: %w", ctx.Err()))
		}

		t.stop()
		t.closeErr = errors.Join(errs...)
	})
	return t.closeErr
}

// Pending returns the number of beacons waiting for delivery.
func (t *HTTP) Pending() int {
	return t.beacons.Len()
}

func (t *HTTP) send(ctx context.Context, path string, payload any, mode string) error {
	body, encoding, err := t.encode(payload)
	if err != nil {
		metrics.RecordDelivery(path, mode, metrics.OutcomeFailed)
		return &DeliveryError{Path: path, Op: "encode", Err: err}
	}
	return t.post(ctx, path, body, encoding, mode)
}

func (t *HTTP) post(ctx context.Context, path string, body []byte, encoding, mode string) error {
	start := time.Now()
	defer func() {
		metrics.RecordDeliveryLatency(path, mode, float64(time.Since(start).Milliseconds()))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+path, bytes.NewReader(body))
	if err != nil {
		metrics.RecordDelivery(path, mode, metrics.OutcomeFailed)
		return &DeliveryError{Path: path, Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		metrics.RecordDelivery(path, mode, outcome)
		metrics.RecordErrorByComponent("transport", "network")
		t.log.Debug(ctx, "delivery failed", logger.String("path", path),
			logger.String("mode", mode), logger.Error(err))
		return &DeliveryError{Path: path, Op: "request", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordDelivery(path, mode, metrics.OutcomeFailed)
		metrics.RecordErrorByComponent("transport", "status")
		t.log.Debug(ctx, "delivery rejected by collector", logger.String("path", path),
			logger.String("mode", mode), logger.Int("status", resp.StatusCode))
		return &DeliveryError{Path: path, Op: "status", Status: resp.StatusCode}
	}

	metrics.RecordDelivery(path, mode, metrics.OutcomeOK)
	return nil
}

// encode marshals payload to JSON and gzips it when compression is on.
func (t *HTTP) encode(payload any) ([]byte, string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	if !t.compress {
		return raw, "", nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, "", err
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "gzip", nil
}
