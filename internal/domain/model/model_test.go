package model_test

import (
	"testing"

	model "github.com/okian/speedhud/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPosition(t *testing.T) {
	convey.Convey("Given two positions", t, func() {
		a := model.Position{World: "overworld", X: 0, Y: 64, Z: 0}
		b := model.Position{World: "overworld", X: 3, Y: 64, Z: 4}

		convey.Convey("Then the distance should be euclidean", func() {
			convey.So(a.Distance(b), convey.ShouldEqual, 5)
			convey.So(b.Distance(a), convey.ShouldEqual, 5)
		})

		convey.Convey("Then they should share a world", func() {
			convey.So(a.SameWorld(b), convey.ShouldBeTrue)
		})

		convey.Convey("When one of them is in another world", func() {
			c := b
			c.World = "nether"

			convey.Convey("Then SameWorld should be false", func() {
				convey.So(a.SameWorld(c), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When both worlds are unnamed", func() {
			convey.So(model.Position{}.SameWorld(model.Position{}), convey.ShouldBeFalse)
		})
	})
}

func TestSeverityColorCode(t *testing.T) {
	convey.Convey("Given severities", t, func() {
		convey.So(model.SeverityGreen.ColorCode(), convey.ShouldEqual, "§a")
		convey.So(model.SeverityYellow.ColorCode(), convey.ShouldEqual, "§e")
		convey.So(model.SeverityRed.ColorCode(), convey.ShouldEqual, "§c")
	})
}
