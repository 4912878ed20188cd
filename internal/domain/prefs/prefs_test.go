package prefs_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/okian/speedhud/internal/domain/prefs"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeUnits is a three-unit registry ms -> kmh -> mph with kmh defaults.
type fakeUnits struct {
	order []string
}

func newFakeUnits() *fakeUnits { return &fakeUnits{order: []string{"ms", "kmh", "mph"}} }

func (f *fakeUnits) Has(id string) bool {
	for _, u := range f.order {
		if u == id {
			return true
		}
	}
	return false
}

func (f *fakeUnits) CycleNext(current string) string {
	for i, u := range f.order {
		if u == current {
			return f.order[(i+1)%len(f.order)]
		}
	}
	return f.order[0]
}

func (f *fakeUnits) DefaultLive() string { return "kmh" }
func (f *fakeUnits) DefaultTop() string  { return "ms" }

func TestStore(t *testing.T) {
	Convey("Given a preference store", t, func() {
		s := prefs.NewStore()
		reg := newFakeUnits()
		alex := uuid.New()

		Convey("When a viewer enables the HUD for the first time", func() {
			p := s.Enable(alex, reg)

			Convey("Then defaults should be filled in", func() {
				So(p.HUDEnabled, ShouldBeTrue)
				So(p.LiveUnit, ShouldEqual, "kmh")
				So(p.TopUnit, ShouldEqual, "ms")
				So(s.HUDEnabled(alex), ShouldBeTrue)
				So(s.EnabledViewers(), ShouldResemble, []uuid.UUID{alex})
			})
		})

		Convey("When a viewer toggles units before enabling", func() {
			live := s.ToggleLive(alex, reg)
			top := s.ToggleTop(alex, reg)

			Convey("Then each should advance from its own default", func() {
				So(live, ShouldEqual, "mph")
				So(top, ShouldEqual, "kmh")
				So(s.HUDEnabled(alex), ShouldBeFalse)
			})

			Convey("And enabling afterwards should keep the choices", func() {
				p := s.Enable(alex, reg)
				So(p.LiveUnit, ShouldEqual, "mph")
				So(p.TopUnit, ShouldEqual, "kmh")
			})
		})

		Convey("When toggling the live unit repeatedly", func() {
			s.Enable(alex, reg)
			got := []string{s.ToggleLive(alex, reg), s.ToggleLive(alex, reg), s.ToggleLive(alex, reg)}

			Convey("Then it should cycle and leave the top unit alone", func() {
				So(got, ShouldResemble, []string{"mph", "ms", "kmh"})
				So(s.TopUnit(alex, "x"), ShouldEqual, "ms")
			})
		})

		Convey("When a stored unit disappears from the registry", func() {
			s.Enable(alex, reg)
			s.ToggleLive(alex, reg) // mph
			reg.order = []string{"ms", "kmh"}
			p := s.Enable(alex, reg)

			Convey("Then enabling should reset it to the default", func() {
				So(p.LiveUnit, ShouldEqual, "kmh")
			})
		})

		Convey("When the HUD is disabled", func() {
			s.Enable(alex, reg)
			s.ToggleLive(alex, reg)
			s.Disable(alex)

			Convey("Then the unit choice should survive", func() {
				So(s.HUDEnabled(alex), ShouldBeFalse)
				So(s.LiveUnit(alex, "kmh"), ShouldEqual, "mph")
				So(s.EnabledViewers(), ShouldBeEmpty)
			})
		})

		Convey("When reading an unknown viewer", func() {
			_, ok := s.Get(uuid.New())

			Convey("Then fallbacks should be returned", func() {
				So(ok, ShouldBeFalse)
				So(s.LiveUnit(uuid.New(), "kmh"), ShouldEqual, "kmh")
				So(s.TopUnit(uuid.New(), "ms"), ShouldEqual, "ms")
				s.Disable(uuid.New())
			})
		})
	})
}
