package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-payment-hub/app/factory"
	"github.com/vibast-solutions/ms-go-payment-hub/app/mapper"
	"github.com/vibast-solutions/ms-go-payment-hub/app/service"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payment-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CreatePayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPaymentAlreadyExists):
			return writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrProviderUnavailable):
			return writeError(ctx, http.StatusBadGateway, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create payment failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	req, err := types.NewPaymentIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.GetPayment(ctx.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return writeError(ctx, http.StatusNotFound, "payment not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get payment failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) VerifyPayment(ctx echo.Context) error {
	req, err := types.NewPaymentIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.paymentService.VerifyPayment(ctx.Request().Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrProviderUnsupported):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrProviderUnavailable):
			return writeError(ctx, http.StatusBadGateway, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Verify payment failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.VerifyPaymentResponse{
		Payment:        mapper.PaymentToResponse(outcome.Payment),
		PreviousStatus: outcome.PreviousStatus,
		CurrentStatus:  outcome.Payment.Status,
		Changed:        outcome.Changed,
	})
}

func (c *PaymentController) CancelPayment(ctx echo.Context) error {
	req, err := types.NewPaymentIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CancelPayment(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeLifecycleError(ctx, err, "Cancel payment failed")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) RefundPayment(ctx echo.Context) error {
	req, err := types.NewRefundPaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.RefundPayment(ctx.Request().Context(), req.ID, req.AmountDecimal())
	if err != nil {
		return c.writeLifecycleError(ctx, err, "Refund payment failed")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) ListByReservation(ctx echo.Context) error {
	req, err := types.NewListByReservationRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListByReservation(ctx.Request().Context(), req.ReservationID)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List payments by reservation failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToResponse(items)})
}

func (c *PaymentController) writeLifecycleError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		return writeError(ctx, http.StatusNotFound, "payment not found")
	case errors.Is(err, service.ErrStateConflict):
		return writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
		return writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrProviderUnavailable):
		return writeError(ctx, http.StatusBadGateway, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
