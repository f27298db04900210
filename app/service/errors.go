package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	ErrPartnerNotFound      = errors.New("partner not found")
	ErrPartnerAlreadyExists = errors.New("partner already exists")
	ErrStateConflict        = errors.New("operation conflicts with payment state")
	ErrSignatureInvalid     = errors.New("webhook signature is invalid")
	ErrProviderUnsupported  = errors.New("provider is not supported")
	ErrProviderUnavailable  = errors.New("provider request failed")
)
