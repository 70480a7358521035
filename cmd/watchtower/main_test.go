package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/watchtower/internal/domain/model"
)

type collector struct {
	mu     sync.Mutex
	trails []model.TrailBatch
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if r.URL.Path == model.TrailPath {
		var b model.TrailBatch
		if err := json.Unmarshal(body, &b); err == nil {
			c.mu.Lock()
			c.trails = append(c.trails, b)
			c.mu.Unlock()
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *collector) samples() []model.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Sample
	for _, b := range c.trails {
		out = append(out, b.Trail...)
	}
	return out
}

// syncBuffer guards the log sink; agent goroutines may still be logging.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun(t *testing.T) {
	convey.Convey("Given a collector and a stream of movements", t, func() {
		c := &collector{}
		srv := httptest.NewServer(c)
		defer srv.Close()

		stdin := strings.NewReader(`{"x":10,"y":20,"type":"mouse"}` + "\n")
		stderr := &syncBuffer{}

		convey.Convey("When the stream ends", func() {
			err := run(context.Background(), []string{"--endpoint", srv.URL, "--page-url", "https://example.test/"}, stdin, stderr)

			convey.Convey("Then the buffered trail is delivered before exit", func() {
				convey.So(err, convey.ShouldBeNil)
				got := c.samples()
				convey.So(len(got), convey.ShouldEqual, 1)
				convey.So(got[0].X, convey.ShouldEqual, 10)
				convey.So(got[0].Kind, convey.ShouldEqual, model.Pointer)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "session ended")
			})
		})

		convey.Convey("When the stream holds a malformed line", func() {
			bad := strings.NewReader("{\"x\":1,\"y\":1,\"type\":\"mouse\"}\nnot json\n")
			err := run(context.Background(), []string{"--endpoint", srv.URL}, bad, stderr)

			convey.Convey("Then the session still tears down and the error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(len(c.samples()), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the endpoint flag is invalid", func() {
			err := run(context.Background(), []string{"--endpoint", "ftp://nowhere"}, stdin, stderr)

			convey.Convey("Then run fails before starting", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(c.samples(), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When an unknown flag is given", func() {
			err := run(context.Background(), []string{"--nope"}, stdin, stderr)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
