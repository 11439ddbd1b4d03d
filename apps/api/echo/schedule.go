package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/campus"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/schedule"
)

type scheduleApi struct {
	svc schedule.ServiceInterface
}

type shareRequest struct {
	Email string `json:"email"`
}

type warningsResponse struct {
	Warnings []campus.Warning `json:"warnings"`
}

func registerScheduleAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc schedule.ServiceInterface) {
	api := scheduleApi{svc: svc}

	sg := g.Group("/schedules", authed...)
	sg.GET("", api.list)

	// roster endpoints
	rg := sg.Group("/:roster")
	rg.GET("", api.retrieve)
	rg.DELETE("", api.clear)
	rg.POST("/courses", api.addCourse)
	rg.PUT("/courses/:id", api.updateCourse)
	rg.DELETE("/courses/:id", api.removeCourse)
	rg.GET("/calendar", api.calendar)
	rg.GET("/validate", api.validate)
	rg.GET("/export.ics", api.exportICS)
	rg.POST("/share", api.share)
}

// Handlers

func (api *scheduleApi) list(ctx echo.Context) error {
	caller := getCaller(ctx)
	summaries, err := api.svc.List(ctx.Request().Context(), caller.ID)
	if err != nil {
		return errors.Wrap(err, "listing schedules")
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	caller := getCaller(ctx)
	sched, err := api.svc.Get(ctx.Request().Context(), caller.ID, ctx.Param("roster"))
	if err != nil {
		return errors.Wrap(err, "getting schedule")
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *scheduleApi) clear(ctx echo.Context) error {
	caller := getCaller(ctx)
	if err := api.svc.Clear(ctx.Request().Context(), caller.ID, ctx.Param("roster")); err != nil {
		return errors.Wrap(err, "clearing schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) addCourse(ctx echo.Context) error {
	var data schedule.NewScheduledCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScheduledCourse")
	}

	caller := getCaller(ctx)
	sched, err := api.svc.AddCourse(ctx.Request().Context(), caller.ID, ctx.Param("roster"), data)
	if err != nil {
		return errors.Wrap(err, "adding course")
	}
	return ctx.JSON(http.StatusCreated, sched)
}

func (api *scheduleApi) updateCourse(ctx echo.Context) error {
	var data schedule.UpdateScheduledCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateScheduledCourse")
	}

	caller := getCaller(ctx)
	sched, err := api.svc.UpdateCourse(ctx.Request().Context(), caller.ID, ctx.Param("roster"), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *scheduleApi) removeCourse(ctx echo.Context) error {
	caller := getCaller(ctx)
	sched, err := api.svc.RemoveCourse(ctx.Request().Context(), caller.ID, ctx.Param("roster"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "removing course")
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *scheduleApi) calendar(ctx echo.Context) error {
	opts, err := bindCalendarOptions(ctx)
	if err != nil {
		return err
	}

	caller := getCaller(ctx)
	cal, err := api.svc.Calendar(ctx.Request().Context(), caller.ID, ctx.Param("roster"), opts)
	if err != nil {
		return errors.Wrap(err, "computing calendar")
	}
	return ctx.JSON(http.StatusOK, cal)
}

func (api *scheduleApi) validate(ctx echo.Context) error {
	caller := getCaller(ctx)
	warnings, err := api.svc.Validate(ctx.Request().Context(), caller.ID, ctx.Param("roster"))
	if err != nil {
		return errors.Wrap(err, "validating schedule")
	}
	if warnings == nil {
		warnings = []campus.Warning{}
	}
	return ctx.JSON(http.StatusOK, warningsResponse{Warnings: warnings})
}

func (api *scheduleApi) exportICS(ctx echo.Context) error {
	caller := getCaller(ctx)
	roster := core.CleanUpper(ctx.Param("roster"))

	var buf bytes.Buffer
	if err := api.svc.ExportICS(ctx.Request().Context(), caller.ID, roster, &buf); err != nil {
		return errors.Wrap(err, "exporting schedule")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "schedule-"+roster+".ics"))
	return ctx.Blob(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

func (api *scheduleApi) share(ctx echo.Context) error {
	var data shareRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to shareRequest")
	}

	caller := getCaller(ctx)
	if err := api.svc.Share(ctx.Request().Context(), caller, ctx.Param("roster"), data.Email); err != nil {
		return errors.Wrap(err, "sharing schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}
