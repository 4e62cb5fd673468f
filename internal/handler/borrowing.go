package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/libranova/library-service/internal/model"
	"github.com/libranova/library-service/pkg/auth"
)

func (h *Handler) CreateBorrowing(c echo.Context) error {
	var req model.CreateBorrowingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor, err := auth.GetActor(c)
	if err != nil {
		return err
	}
	req.UserName = actor.Name

	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	b, err := h.borrowingSvc.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBorrowings(c echo.Context) error {
	actor, err := auth.GetActor(c)
	if err != nil {
		return err
	}

	filter := model.BorrowingFilter{
		UserName: actor.Name,
		All:      actor.IsAdmin() && c.QueryParam("all") == "true",
	}
	if v := c.QueryParam("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid active param")
		}
		filter.Active = &active
	}
	if v := c.QueryParam("overdue"); v != "" {
		overdue, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid overdue param")
		}
		filter.Overdue = &overdue
	}
	filter.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filter.Size, _ = strconv.Atoi(c.QueryParam("size"))

	list, err := h.borrowingSvc.List(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetBorrowing(c echo.Context) error {
	actor, err := auth.GetActor(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid borrowing id")
	}

	b, err := h.borrowingSvc.Get(c.Request().Context(), id, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ReturnBorrowing(c echo.Context) error {
	actor, err := auth.GetActor(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid borrowing id")
	}

	var req model.ReturnBorrowingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	b, err := h.borrowingSvc.Return(c.Request().Context(), id, req.Date.Time, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}
