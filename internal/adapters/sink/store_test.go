package sink

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "sink.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_InsertAndCounts(t *testing.T) {
	Convey("Given an empty store", t, func() {
		s := openTestStore(t)
		ctx := context.Background()

		Convey("Then counts are zero", func() {
			c, err := s.Counts(ctx)
			So(err, ShouldBeNil)
			So(c, ShouldResemble, Counts{})
		})

		Convey("When payloads from two sessions are inserted", func() {
			now := time.Now()
			_, err := s.Insert(ctx, KindFingerprint, "s1", []byte(`{"session_id":"s1"}`), now)
			So(err, ShouldBeNil)
			_, err = s.Insert(ctx, KindTrail, "s1", []byte(`{"trail":[]}`), now)
			So(err, ShouldBeNil)
			id, err := s.Insert(ctx, KindTrail, "s2", []byte(`{"trail":[{"x":1}]}`), now)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 3)

			Convey("Then counts reflect kinds and sessions", func() {
				c, err := s.Counts(ctx)
				So(err, ShouldBeNil)
				So(c.Fingerprints, ShouldEqual, 1)
				So(c.Trails, ShouldEqual, 2)
				So(c.Sessions, ShouldEqual, 2)
			})

			Convey("And recent payloads come back newest first", func() {
				recs, err := s.Recent(ctx, KindTrail, 10)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 2)
				So(recs[0].SessionID, ShouldEqual, "s2")
				So(string(recs[0].Body), ShouldEqual, `{"trail":[{"x":1}]}`)

				all, err := s.Recent(ctx, "", 2)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
			})
		})
	})
}

func TestStore_Rejects(t *testing.T) {
	Convey("Given a store", t, func() {
		s := openTestStore(t)
		ctx := context.Background()

		Convey("Then invalid JSON is rejected", func() {
			_, err := s.Insert(ctx, KindTrail, "s1", []byte(`{not json`), time.Now())
			So(errors.Is(err, ErrStore), ShouldBeTrue)
		})

		Convey("Then unknown kinds are rejected", func() {
			_, err := s.Insert(ctx, "clicks", "s1", []byte(`{}`), time.Now())
			So(errors.Is(err, ErrStore), ShouldBeTrue)
		})
	})
}
