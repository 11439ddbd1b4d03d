package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
)

type catalogApi struct {
	svc catalog.ServiceInterface
}

func registerCatalogAPI(g *echo.Group, svc catalog.ServiceInterface) {
	api := catalogApi{svc: svc}

	g.GET("/rosters", api.rosters)
	g.GET("/subjects", api.subjects)
	g.GET("/courses", api.search)
	g.GET("/courses/:roster/:subject/:number", api.retrieve)
}

// Handlers

func (api *catalogApi) rosters(ctx echo.Context) error {
	rosters, err := api.svc.Rosters(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing rosters")
	}
	return ctx.JSON(http.StatusOK, rosters)
}

func (api *catalogApi) subjects(ctx echo.Context) error {
	subjects, err := api.svc.Subjects(ctx.Request().Context(), ctx.QueryParam("roster"))
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *catalogApi) search(ctx echo.Context) error {
	q, err := bindSearchQuery(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.Search(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "searching courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	course, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("roster"), ctx.Param("subject"), ctx.Param("number"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, course)
}
