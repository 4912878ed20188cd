package world

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty registry", t, func() {
		r := NewRegistry()
		steve := uuid.New()

		Convey("When an entity without a name is upserted", func() {
			_, err := r.Upsert(ctx, Entity{ID: steve, Name: "  "})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, ErrInvalidEntity), ShouldBeTrue)
				So(r.Len(), ShouldEqual, 0)
			})
		})

		Convey("When entities come online", func() {
			created, err := r.Upsert(ctx, Entity{ID: steve, Name: "Steve", Permissions: []string{"SpeedHUD.Toggle"}})
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)
			_, err = r.Upsert(ctx, Entity{ID: uuid.New(), Name: "Alex", Permissions: []string{"*"}})
			So(err, ShouldBeNil)

			Convey("Then Online should list them by name", func() {
				online := r.Online(ctx)
				So(len(online), ShouldEqual, 2)
				So(online[0].Name, ShouldEqual, "Alex")
				So(online[1].Name, ShouldEqual, "Steve")
			})

			Convey("Then permissions should match case-insensitively", func() {
				So(r.HasPermission(steve, "speedhud.toggle"), ShouldBeTrue)
				So(r.HasPermission(steve, "speedhud.reload"), ShouldBeFalse)
				So(r.HasPermission(r.Online(ctx)[0].ID, "speedhud.reload"), ShouldBeTrue)
				So(r.HasPermission(uuid.New(), "speedhud.toggle"), ShouldBeFalse)
			})

			Convey("Then moving should update the position", func() {
				So(r.Move(ctx, steve, model.Position{World: "overworld", X: 5}), ShouldBeNil)
				tr, ok := r.Lookup(ctx, steve)
				So(ok, ShouldBeTrue)
				So(tr.Position.X, ShouldEqual, 5)
			})

			Convey("Then upserting again should not count as new", func() {
				created, err := r.Upsert(ctx, Entity{ID: steve, Name: "Steve"})
				So(err, ShouldBeNil)
				So(created, ShouldBeFalse)
				So(r.HasPermission(steve, "speedhud.toggle"), ShouldBeFalse)
			})

			Convey("Then removing should take it offline", func() {
				So(r.Remove(ctx, steve), ShouldBeNil)
				_, ok := r.Lookup(ctx, steve)
				So(ok, ShouldBeFalse)
				So(errors.Is(r.Remove(ctx, steve), ErrNotFound), ShouldBeTrue)
				So(errors.Is(r.Move(ctx, steve, model.Position{}), ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
