package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-payment-hub/app/factory"
	"github.com/vibast-solutions/ms-go-payment-hub/app/service"
	"github.com/vibast-solutions/ms-go-payment-hub/app/signature"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

type WebhookController struct {
	paymentService *service.PaymentService
	codec          *signature.Codec
	logger         logrus.FieldLogger
}

func NewWebhookController(paymentService *service.PaymentService) *WebhookController {
	return &WebhookController{
		paymentService: paymentService,
		codec:          signature.NewCodec(0),
		logger:         factory.NewModuleLogger("webhook-controller"),
	}
}

func (c *WebhookController) HandleProviderWebhook(ctx echo.Context) error {
	req, err := types.NewProviderWebhookRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	_, err = c.paymentService.HandleProviderWebhook(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureInvalid):
			return writeError(ctx, http.StatusUnauthorized, err.Error())
		case errors.Is(err, service.ErrProviderUnsupported), errors.Is(err, service.ErrInvalidRequest):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPaymentNotFound):
			return writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrStateConflict):
			return writeError(ctx, http.StatusConflict, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle provider webhook failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "webhook processed"})
}

// GenerateSignature signs an arbitrary payload with a caller-supplied
// secret. Meant for partners integrating against sandbox environments.
func (c *WebhookController) GenerateSignature(ctx echo.Context) error {
	req, err := types.NewGenerateSignatureRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	return ctx.JSON(http.StatusOK, &types.SignatureResponse{
		Signature: c.codec.Sign(req.Secret, req.Payload),
	})
}
