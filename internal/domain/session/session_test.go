package session_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/okian/watchtower/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given freshly issued session identifiers", t, func() {
		a := session.New()
		b := session.New()

		Convey("Then each is a valid random UUID", func() {
			parsed, err := uuid.Parse(a.String())
			So(err, ShouldBeNil)
			So(parsed.Version(), ShouldEqual, uuid.Version(4))
		})

		Convey("And two identifiers never collide", func() {
			So(a, ShouldNotEqual, b)
		})
	})
}
