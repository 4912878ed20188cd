package motion_test

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/internal/domain/motion"
	. "github.com/smartystreets/goconvey/convey"
)

func at(world string, x float64) model.Position {
	return model.Position{World: world, X: x, Y: 64, Z: 0}
}

func TestSampler(t *testing.T) {
	Convey("Given a sampler at the default rate", t, func() {
		s := motion.NewSampler()
		id := uuid.New()

		Convey("When an entity is sampled for the first time", func() {
			raw, avg := s.Sample(id, at("overworld", 0))

			Convey("Then raw speed should be 0 and the baseline stored", func() {
				So(raw, ShouldEqual, 0)
				So(avg, ShouldEqual, 0)
				last, ok := s.LastPosition(id)
				So(ok, ShouldBeTrue)
				So(last, ShouldResemble, at("overworld", 0))
			})
		})

		Convey("When an entity moves 2 blocks per tick for 5 ticks", func() {
			s.Sample(id, at("overworld", 0))
			var raw, avg float64
			for i := 1; i <= 5; i++ {
				raw, avg = s.Sample(id, at("overworld", float64(2*i)))
			}

			Convey("Then raw and smoothed speed should both be 10", func() {
				So(raw, ShouldEqual, 10)
				So(avg, ShouldEqual, 10)
				So(s.Average(id), ShouldEqual, 10)
			})

			Convey("And projecting into km/h should yield 36.00", func() {
				So(math.Round(avg*3.6*100)/100, ShouldEqual, 36.00)
			})
		})

		Convey("When an entity changes world between samples", func() {
			s.Sample(id, at("overworld", 0))
			s.Sample(id, at("overworld", 2))
			raw, _ := s.Sample(id, at("nether", 5000))

			Convey("Then raw speed for that tick should be exactly 0", func() {
				So(raw, ShouldEqual, 0)
			})

			Convey("And the next tick in the new world should measure from the new baseline", func() {
				raw, _ := s.Sample(id, at("nether", 5001))
				So(raw, ShouldEqual, 5)
			})
		})

		Convey("When two entities are sampled", func() {
			other := uuid.New()
			s.Sample(id, at("overworld", 0))
			s.Sample(other, at("overworld", 0))
			s.Sample(id, at("overworld", 4))

			Convey("Then their states should be independent", func() {
				So(s.Len(), ShouldEqual, 2)
				So(s.Average(id), ShouldBeGreaterThan, 0)
				So(s.Average(other), ShouldEqual, 0)
			})
		})

		Convey("When the entity was never sampled", func() {
			_, ok := s.LastPosition(uuid.New())
			So(ok, ShouldBeFalse)
			So(s.Average(uuid.New()), ShouldEqual, 0)
		})
	})

	Convey("Given custom options", t, func() {
		s := motion.NewSampler(motion.WithRate(20), motion.WithHistory(2), motion.WithRate(-1))
		id := uuid.New()

		Convey("Then the rate and history should apply", func() {
			So(s.Rate(), ShouldEqual, 20)
			s.Sample(id, at("w", 0))
			s.Sample(id, at("w", 1))
			s.Sample(id, at("w", 2))
			// window of 2 holds [20, 20]
			So(s.Average(id), ShouldEqual, 20)
		})

		Convey("And SetRate should ignore non-positive values", func() {
			s.SetRate(0)
			So(s.Rate(), ShouldEqual, 20)
			s.SetRate(4)
			So(s.Rate(), ShouldEqual, 4)
		})
	})
}
