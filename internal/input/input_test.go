package input

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/watchtower/internal/domain/model"
	"github.com/okian/watchtower/internal/domain/trail"
	"github.com/smartystreets/goconvey/convey"
)

func TestRead(t *testing.T) {
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	now := func() time.Time { return fixed }

	convey.Convey("Given a JSON lines stream", t, func() {
		var got []trail.Movement
		emit := func(m trail.Movement) { got = append(got, m) }

		convey.Convey("When it holds mouse and touch lines", func() {
			stream := `{"x":1,"y":2,"type":"mouse"}

{"x":3,"y":4,"type":"touch"}
{"x":5,"y":6,"type":"touch","touches":0}
`
			err := Read(context.Background(), strings.NewReader(stream), now, emit)

			convey.Convey("Then every movement is emitted in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(got), convey.ShouldEqual, 3)
				convey.So(got[0], convey.ShouldResemble, trail.Movement{X: 1, Y: 2, Kind: model.Pointer, At: fixed})
				convey.So(got[1].Kind, convey.ShouldEqual, model.Touch)
				convey.So(got[1].Touches, convey.ShouldEqual, 1)
				convey.So(got[2].Touches, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When a line is malformed", func() {
			stream := "{\"x\":1,\"y\":2,\"type\":\"mouse\"}\n{\"x\":1,\"type\":\"stylus\"}\n"
			err := Read(context.Background(), strings.NewReader(stream), now, emit)

			convey.Convey("Then it stops with ErrMalformedLine", func() {
				convey.So(errors.Is(err, ErrMalformedLine), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "line 2")
				convey.So(len(got), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := Read(ctx, strings.NewReader(`{"x":1,"y":2,"type":"mouse"}`), now, emit)

			convey.Convey("Then nothing is emitted", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				convey.So(got, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestWalk(t *testing.T) {
	convey.Convey("Given a bounded walk", t, func() {
		w := Walk{Width: 100, Height: 50, MaxStep: 30, Interval: time.Millisecond, Count: 200}
		var got []trail.Movement

		err := w.Run(context.Background(), func(m trail.Movement) { got = append(got, m) })

		convey.Convey("Then it emits Count movements inside the surface", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(got), convey.ShouldEqual, 200)
			for _, m := range got {
				convey.So(m.X, convey.ShouldBeBetweenOrEqual, 0, 100)
				convey.So(m.Y, convey.ShouldBeBetweenOrEqual, 0, 50)
				if m.Kind == model.Touch {
					convey.So(m.Touches, convey.ShouldBeBetweenOrEqual, 1, 2)
				}
			}
		})

		convey.Convey("Then timestamps never go backwards", func() {
			for i := 1; i < len(got); i++ {
				convey.So(got[i].At.Before(got[i-1].At), convey.ShouldBeFalse)
			}
		})
	})

	convey.Convey("Given an unbounded walk", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := Walk{Width: 10, Height: 10, MaxStep: 1, Interval: time.Millisecond}.Run(ctx, func(trail.Movement) {})

		convey.Convey("Then it ends with the context", func() {
			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})
}
