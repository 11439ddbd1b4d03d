package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core/campus"
)

type campusApi struct {
	svc campus.ServiceInterface
}

func registerCampusAPI(g *echo.Group, svc campus.ServiceInterface) {
	api := campusApi{svc: svc}

	cg := g.Group("/campus")
	cg.GET("/locate", api.locate)
	cg.GET("/route", api.route)
}

// Handlers

func (api *campusApi) locate(ctx echo.Context) error {
	loc, err := api.svc.Locate(ctx.Request().Context(), ctx.QueryParam("building"))
	if err != nil {
		return errors.Wrap(err, "locating building")
	}
	return ctx.JSON(http.StatusOK, loc)
}

func (api *campusApi) route(ctx echo.Context) error {
	walk, err := api.svc.Route(ctx.Request().Context(), ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return errors.Wrap(err, "routing")
	}
	return ctx.JSON(http.StatusOK, walk)
}
