// Package input turns external event streams into movements for the agent.
package input

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/okian/watchtower/internal/domain/model"
	"github.com/okian/watchtower/internal/domain/trail"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	maxLineBytes       = 64 * 1024
)

// Constants for the simulated walk.
const (
	defaultWidth    = 1920.0
	defaultHeight   = 1080.0
	defaultMaxStep  = 40.0
	defaultInterval = 16 * time.Millisecond
	touchOneIn      = 10
)

// ErrMalformedLine is returned by Read for a line that is not a movement.
var ErrMalformedLine = errors.New("malformed movement line")

// Emit receives each movement a source produces.
type Emit func(trail.Movement)

// line is the JSON shape of one movement on a stream.
type line struct {
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
	Type    model.Kind `json:"type"`
	Touches *int       `json:"touches,omitempty"`
}

// Read decodes newline-delimited JSON movements from r until EOF or ctx
// is cancelled. Blank lines are skipped. A touch line without a touches
// count counts as one touch. Movements are stamped with now().
func Read(ctx context.Context, r io.Reader, now func() time.Time, emit Emit) error {
	if now == nil {
		now = time.Now
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	n := 0
	for sc.Scan() {
		n++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrMalformedLine, n, err)
		}
		m := trail.Movement{X: l.X, Y: l.Y, Kind: l.Type, At: now()}
		if l.Type == model.Touch {
			m.Touches = 1
			if l.Touches != nil {
				m.Touches = *l.Touches
			}
		}
		emit(m)
	}
	return sc.Err()
}

// Walk produces a bounded random walk across a surface.
type Walk struct {
	Width, Height float64
	MaxStep       float64
	Interval      time.Duration
	// Count stops the walk after that many movements; 0 runs until ctx ends.
	Count int
}

// NewWalk returns a walk over a 1920x1080 surface emitting every 16ms.
func NewWalk() Walk {
	return Walk{
		Width:    defaultWidth,
		Height:   defaultHeight,
		MaxStep:  defaultMaxStep,
		Interval: defaultInterval,
	}
}

// Run emits movements until Count is reached or ctx is cancelled. It
// returns nil when Count is reached and ctx.Err() otherwise.
func (w Walk) Run(ctx context.Context, emit Emit) error {
	if w.Interval <= 0 {
		w.Interval = defaultInterval
	}
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	x, y := w.Width/2, w.Height/2
	for i := 0; w.Count == 0 || i < w.Count; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			x = clamp(x+(getRandomFloat()*2-1)*w.MaxStep, 0, w.Width)
			y = clamp(y+(getRandomFloat()*2-1)*w.MaxStep, 0, w.Height)
			m := trail.Movement{X: x, Y: y, Kind: model.Pointer, At: now}
			if randomInt(touchOneIn) == 0 {
				m.Kind = model.Touch
				m.Touches = 1 + randomInt(2)
			}
			emit(m)
		}
	}
	return nil
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int64) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return int(v.Int64())
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
