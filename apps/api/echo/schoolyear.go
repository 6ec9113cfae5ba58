package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
)

type schoolYearApi struct {
	svc *schoolyear.Service
}

type lockFunc func(ctx context.Context, id int) (schoolyear.LockResult, error)

func registerSchoolYearAPI(g *echo.Group, svc *schoolyear.Service) {
	api := schoolYearApi{svc: svc}

	yg := g.Group("/school-years")
	yg.GET("", api.query)
	yg.GET("/active", api.active)
	yg.POST("", api.create, adminMiddleware)

	dg := yg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/activate", api.activate, adminMiddleware)
	dg.POST("/lock", api.lock, adminMiddleware)
	dg.POST("/unlock", api.unlock, adminMiddleware)
}

func (api *schoolYearApi) query(ctx echo.Context) error {
	years, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying school years")
	}
	if years == nil {
		years = []schoolyear.SchoolYear{}
	}
	return ctx.JSON(http.StatusOK, years)
}

func (api *schoolYearApi) active(ctx echo.Context) error {
	year, err := api.svc.GetActive(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting active school year")
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *schoolYearApi) create(ctx echo.Context) error {
	var data schoolyear.NewSchoolYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchoolYear")
	}
	year, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, year)
}

func (api *schoolYearApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	year, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting school year")
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *schoolYearApi) activate(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	year, err := api.svc.SetActive(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "activating school year")
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *schoolYearApi) lock(ctx echo.Context) error {
	return api.setLocked(ctx, api.svc.Lock)
}

func (api *schoolYearApi) unlock(ctx echo.Context) error {
	return api.setLocked(ctx, api.svc.Unlock)
}

func (api *schoolYearApi) setLocked(ctx echo.Context, fn lockFunc) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	res, err := fn(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "setting school year lock")
	}
	return ctx.JSON(http.StatusOK, res)
}
