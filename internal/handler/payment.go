package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/libranova/library-service/internal/model"
	"github.com/libranova/library-service/pkg/auth"
)

func (h *Handler) CreatePayment(c echo.Context) error {
	actor, err := auth.GetActor(c)
	if err != nil {
		return err
	}

	var req model.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.paymentSvc.CreateSession(c.Request().Context(), req, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

// PaymentSuccess is the gateway redirect target after checkout.
func (h *Handler) PaymentSuccess(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		sessionID = c.QueryParam("razorpay_payment_link_id")
	}
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is empty")
	}

	p, err := h.paymentSvc.ConfirmByCallback(c.Request().Context(), sessionID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) VerifyPayment(c echo.Context) error {
	var req model.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.paymentSvc.VerifyAndConfirm(c.Request().Context(), req.SessionID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RefundPayment(c echo.Context) error {
	actor, err := auth.GetActor(c)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "admin only")
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payment id")
	}

	var req model.RefundPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.paymentSvc.Refund(c.Request().Context(), id, req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}
