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

type PartnerController struct {
	partnerService *service.PartnerService
	logger         logrus.FieldLogger
}

func NewPartnerController(partnerService *service.PartnerService) *PartnerController {
	return &PartnerController{
		partnerService: partnerService,
		logger:         factory.NewModuleLogger("partner-controller"),
	}
}

func (c *PartnerController) CreatePartner(ctx echo.Context) error {
	req, err := types.NewCreatePartnerRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.partnerService.CreatePartner(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrPartnerAlreadyExists) {
			return writeError(ctx, http.StatusConflict, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create partner failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	// The plaintext secret is disclosed once, here.
	return ctx.JSON(http.StatusCreated, &types.PartnerEnvelopeResponse{Partner: mapper.PartnerToResponse(item, true)})
}

func (c *PartnerController) ListPartners(ctx echo.Context) error {
	items, err := c.partnerService.ListPartners(ctx.Request().Context())
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List partners failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPartnersResponse{Partners: mapper.PartnersToResponse(items)})
}

func (c *PartnerController) ListPartnersByEvent(ctx echo.Context) error {
	req, err := types.NewListPartnersByEventRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.partnerService.ListPartnersByEvent(ctx.Request().Context(), types.EventType(req.Event))
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List partners by event failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPartnersResponse{Partners: mapper.PartnersToResponse(items)})
}

func (c *PartnerController) GetPartner(ctx echo.Context) error {
	req, err := types.NewPartnerIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.partnerService.GetPartner(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writePartnerError(ctx, err, "Get partner failed")
	}

	return ctx.JSON(http.StatusOK, &types.PartnerEnvelopeResponse{Partner: mapper.PartnerToResponse(item, false)})
}

func (c *PartnerController) RotateSecret(ctx echo.Context) error {
	req, err := types.NewPartnerIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.partnerService.RotateSecret(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writePartnerError(ctx, err, "Rotate partner secret failed")
	}

	return ctx.JSON(http.StatusOK, &types.PartnerEnvelopeResponse{Partner: mapper.PartnerToResponse(item, true)})
}

func (c *PartnerController) ActivatePartner(ctx echo.Context) error {
	req, err := types.NewPartnerIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.partnerService.ActivatePartner(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writePartnerError(ctx, err, "Activate partner failed")
	}

	return ctx.JSON(http.StatusOK, &types.PartnerEnvelopeResponse{Partner: mapper.PartnerToResponse(item, false)})
}

func (c *PartnerController) DeactivatePartner(ctx echo.Context) error {
	req, err := types.NewPartnerIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.partnerService.DeactivatePartner(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writePartnerError(ctx, err, "Deactivate partner failed")
	}

	return ctx.JSON(http.StatusOK, &types.PartnerEnvelopeResponse{Partner: mapper.PartnerToResponse(item, false)})
}

func (c *PartnerController) TestWebhook(ctx echo.Context) error {
	req, err := types.NewPartnerIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.partnerService.TestWebhook(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writePartnerError(ctx, err, "Test webhook failed")
	}

	return ctx.JSON(http.StatusOK, &types.WebhookTestResponse{Delivery: mapper.DeliveryResultToResponse(result)})
}

func (c *PartnerController) writePartnerError(ctx echo.Context, err error, logMessage string) error {
	if errors.Is(err, service.ErrPartnerNotFound) {
		return writeError(ctx, http.StatusNotFound, "partner not found")
	}
	factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
	return writeError(ctx, http.StatusInternalServerError, "internal server error")
}
