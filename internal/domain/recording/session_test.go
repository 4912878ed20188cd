package recording_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/speedhud/internal/domain/recording"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a recording manager", t, func() {
		m := recording.NewManager()
		steve := uuid.New()
		ticket := recording.Ticket{EntityID: steve, EntityName: "Steve", IssuerID: steve}

		Convey("When a session starts", func() {
			started, err := m.Start(ticket)

			Convey("Then the entity should be recording with a zero peak", func() {
				So(err, ShouldBeNil)
				So(started.StartedAt.IsZero(), ShouldBeFalse)
				So(m.Recording(steve), ShouldBeTrue)
				current, ok := m.Current(steve)
				So(ok, ShouldBeTrue)
				So(current, ShouldEqual, started)
				peak, ok := m.Peak(steve)
				So(ok, ShouldBeTrue)
				So(peak, ShouldEqual, 0)
			})

			Convey("And a second start should be rejected without touching the peak", func() {
				m.Observe(steve, 4.0)
				_, err := m.Start(ticket)
				So(errors.Is(err, recording.ErrAlreadyRecording), ShouldBeTrue)
				peak, _ := m.Peak(steve)
				So(peak, ShouldEqual, 4.0)
				So(m.Active(), ShouldEqual, 1)
			})

			Convey("And the peak should keep the highest average seen", func() {
				for _, avg := range []float64{3, 8, 5, 2} {
					m.Observe(steve, avg)
				}
				res, err := m.Finish(steve)
				So(err, ShouldBeNil)
				So(res.Peak, ShouldEqual, 8.0)
				So(res.EntityName, ShouldEqual, "Steve")
				So(res.IssuerID, ShouldEqual, steve)
			})

			Convey("And finishing twice should fail the second time", func() {
				_, err := m.Finish(steve)
				So(err, ShouldBeNil)
				_, err = m.Finish(steve)
				So(errors.Is(err, recording.ErrNotRecording), ShouldBeTrue)
				So(m.Recording(steve), ShouldBeFalse)
			})

			Convey("And a new session after finishing starts from zero", func() {
				m.Observe(steve, 9)
				_, _ = m.Finish(steve)
				_, err := m.Start(ticket)
				So(err, ShouldBeNil)
				peak, _ := m.Peak(steve)
				So(peak, ShouldEqual, 0)
			})
		})

		Convey("When observing an idle entity", func() {
			m.Observe(steve, 12)

			Convey("Then nothing should be tracked", func() {
				So(m.Recording(steve), ShouldBeFalse)
				_, ok := m.Peak(steve)
				So(ok, ShouldBeFalse)
				_, ok = m.Current(steve)
				So(ok, ShouldBeFalse)
			})
		})
	})
}
