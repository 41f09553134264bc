package service_test

import (
	"context"
	"errors"
	"testing"

	service "github.com/okian/courtside/internal/app"
	"github.com/okian/courtside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type flakySource struct {
	strategies []*model.Strategy
	err        error
}

func (f *flakySource) Name() string { return "flaky" }

func (f *flakySource) Load(context.Context) ([]*model.Strategy, error) {
	return f.strategies, f.err
}

func TestRegistry_Refresh(t *testing.T) {
	Convey("Given a registry over a source", t, func() {
		ctx := context.Background()
		valid := blowout()
		broken := &model.Strategy{ID: "broken", Mode: model.ModeParallel}
		second := blowout()
		second.ID = "s-0"
		src := &flakySource{strategies: []*model.Strategy{valid, broken, second, blowout()}}
		reg := service.NewRegistry(src, nil)

		Convey("When it refreshes", func() {
			So(reg.Refresh(ctx), ShouldBeNil)

			Convey("Then invalid and duplicate strategies are skipped and the rest ordered by id", func() {
				list := reg.Strategies()
				So(list, ShouldHaveLength, 2)
				So(list[0].ID, ShouldEqual, "s-0")
				So(list[1].ID, ShouldEqual, "s-1")
				_, ok := reg.Get("broken")
				So(ok, ShouldBeFalse)
				So(reg.Map(), ShouldContainKey, "s-1")
			})

			Convey("And a failing refresh keeps the previous set", func() {
				src.err = errors.New("source unavailable")
				So(reg.Refresh(ctx), ShouldNotBeNil)
				So(reg.Len(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a registry with no source", t, func() {
		reg := service.NewRegistry(nil, nil)
		So(errors.Is(reg.Refresh(context.Background()), service.ErrNoSource), ShouldBeTrue)
	})
}
