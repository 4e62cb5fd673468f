package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/libranova/library-service/internal/model"
	"github.com/libranova/library-service/pkg/auth"
)

func (h *Handler) GetFines(c echo.Context) error {
	actor, err := auth.GetActor(c)
	if err != nil {
		return err
	}
	all := actor.IsAdmin() && c.QueryParam("all") == "true"

	fines, err := h.fineSvc.ListFines(c.Request().Context(), actor.Name, all)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, fines)
}

// ProcessFines is the manual trigger for the overdue scan. The scheduled
// driver runs the same operation; both rely on its idempotence.
func (h *Handler) ProcessFines(c echo.Context) error {
	actor, err := auth.GetActor(c)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "admin only")
	}

	report, err := h.fineSvc.IssueFines(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) WaiveFine(c echo.Context) error {
	actor, err := auth.GetActor(c)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "admin only")
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid borrowing id")
	}

	var req model.WaiveFineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.fineSvc.Waive(c.Request().Context(), id, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}
