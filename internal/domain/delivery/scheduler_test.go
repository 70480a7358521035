package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/watchtower/internal/adapters/buffer"
	"github.com/okian/watchtower/internal/domain/model"
	"github.com/okian/watchtower/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

type sent struct {
	path       string
	batch      model.TrailBatch
	guaranteed bool
}

type recordingSender struct {
	mu     sync.Mutex
	calls  []sent
	reject bool
}

func (r *recordingSender) SendAsync(_ context.Context, path string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sent{path: path, batch: payload.(model.TrailBatch)})
}

func (r *recordingSender) SendGuaranteed(path string, payload any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sent{path: path, batch: payload.(model.TrailBatch), guaranteed: true})
	return !r.reject
}

func sample(offset int64) model.Sample {
	return model.Sample{X: 1, Y: 2, Kind: model.Pointer, OffsetMillis: offset}
}

func TestScheduler_OnTick(t *testing.T) {
	Convey("Given a scheduler over a buffer", t, func() {
		buf := buffer.New(buffer.WithCapacity(10))
		sender := &recordingSender{}
		now := time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.UTC)
		s := New(buf, sender, session.ID("sess-1"),
			WithPageURL("https://example.test/page"),
			WithClock(func() time.Time { return now }))
		ctx := context.Background()

		Convey("When the buffer is empty", func() {
			flushed := s.OnTick(ctx)

			Convey("Then the tick is a no-op", func() {
				So(flushed, ShouldBeFalse)
				So(sender.calls, ShouldBeEmpty)
			})
		})

		Convey("When the buffer holds samples", func() {
			buf.Append(sample(1))
			buf.Append(sample(2))
			flushed := s.OnTick(ctx)

			Convey("Then one async batch is sent with the page context", func() {
				So(flushed, ShouldBeTrue)
				So(len(sender.calls), ShouldEqual, 1)

				call := sender.calls[0]
				So(call.path, ShouldEqual, model.TrailPath)
				So(call.guaranteed, ShouldBeFalse)
				So(call.batch.SessionID, ShouldEqual, "sess-1")
				So(call.batch.URL, ShouldEqual, "https://example.test/page")
				So(call.batch.Timestamp, ShouldEqual, "2024-05-06T07:08:09.010Z")
				So(len(call.batch.Trail), ShouldEqual, 2)
			})

			Convey("And the buffer is empty afterwards", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When ticking twice without new samples", func() {
			buf.Append(sample(1))
			first := s.OnTick(ctx)
			second := s.OnTick(ctx)

			Convey("Then no sample is delivered twice", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(len(sender.calls), ShouldEqual, 1)
			})
		})
	})
}

func TestScheduler_OnTeardown(t *testing.T) {
	Convey("Given a scheduler over a buffer", t, func() {
		buf := buffer.New(buffer.WithCapacity(10))
		sender := &recordingSender{}
		s := New(buf, sender, session.New())

		Convey("When tearing down with an empty buffer", func() {
			flushed := s.OnTeardown()

			Convey("Then no delivery call is made", func() {
				So(flushed, ShouldBeFalse)
				So(sender.calls, ShouldBeEmpty)
			})
		})

		Convey("When tearing down with buffered samples", func() {
			buf.Append(sample(5))
			flushed := s.OnTeardown()

			Convey("Then the batch goes through the guaranteed path", func() {
				So(flushed, ShouldBeTrue)
				So(len(sender.calls), ShouldEqual, 1)
				So(sender.calls[0].guaranteed, ShouldBeTrue)
				So(sender.calls[0].path, ShouldEqual, model.TrailPath)
			})
		})

		Convey("When teardown fires more than once", func() {
			buf.Append(sample(5))
			s.OnTeardown()
			buf.Append(sample(6))
			again := s.OnTeardown()

			Convey("Then only the first call delivers", func() {
				So(again, ShouldBeFalse)
				So(len(sender.calls), ShouldEqual, 1)
			})

			Convey("And ticks after teardown are ignored", func() {
				So(s.OnTick(context.Background()), ShouldBeFalse)
				So(len(sender.calls), ShouldEqual, 1)
			})
		})

		Convey("When the beacon queue rejects the batch", func() {
			sender.reject = true
			buf.Append(sample(5))

			Convey("Then the batch still counts as handed over", func() {
				So(s.OnTeardown(), ShouldBeTrue)
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}
