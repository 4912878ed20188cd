package config_test

import (
	"testing"
	"time"

	"github.com/okian/speedhud/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Language, convey.ShouldEqual, "en")
			convey.So(cfg.DefaultUnit, convey.ShouldEqual, "kmh")
			convey.So(cfg.DefaultTopUnit, convey.ShouldEqual, "kmh")
			convey.So(cfg.TickInterval(), convey.ShouldEqual, 200*time.Millisecond)
			convey.So(cfg.SamplingRate, convey.ShouldEqual, 5)
			convey.So(cfg.HistorySize, convey.ShouldEqual, 5)
			convey.So(cfg.RecordDuration(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.StorageDriver, convey.ShouldEqual, config.StorageYAML)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the unit table should keep its order", func() {
			ids := make([]string, 0, len(cfg.Units))
			for _, u := range cfg.Units {
				ids = append(ids, u.ID)
			}
			convey.So(ids, convey.ShouldResemble, []string{"ms", "kmh", "mph"})
		})
	})

	convey.Convey("Given a unit without an explicit enabled flag", t, func() {
		u := config.Unit{ID: "knots"}

		convey.Convey("Then it should count as enabled", func() {
			convey.So(u.IsEnabled(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a missing multiplier should mean 1 and an explicit 0 should stay 0", func() {
			convey.So(u.Factor(), convey.ShouldEqual, 1.0)
			zero := 0.0
			u.Multiplier = &zero
			convey.So(u.Factor(), convey.ShouldEqual, 0.0)
		})
	})

	convey.Convey("Given two subcommands sharing an alias", t, func() {
		cfg := config.New()
		cfg.Subcommands["disable"] = "on"

		convey.Convey("Then the shared alias should be reported", func() {
			convey.So(cfg.SharedAliases(), convey.ShouldResemble, map[string][]string{"on": {"disable", "enable"}})
		})
	})

	convey.Convey("Given the default aliases", t, func() {
		convey.Convey("Then none should be shared", func() {
			convey.So(config.New().SharedAliases(), convey.ShouldBeEmpty)
		})
	})
}
