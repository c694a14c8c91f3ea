package service

import (
	"fmt"

	"github.com/mehedi-exx/Hr/internal/domain"
)

var (
	ErrSupportTooShort    = fmt.Errorf("%w: message must be at least %d characters", domain.ErrValidation, MinSupportMessage)
	ErrEmployeeLimit      = fmt.Errorf("%w: employee limit reached", domain.ErrValidation)
	ErrMissingSignature   = fmt.Errorf("%w: missing signature", domain.ErrIntegrity)
	ErrSignatureMismatch  = fmt.Errorf("%w: signature mismatch", domain.ErrIntegrity)
	ErrWebhookUnavailable = fmt.Errorf("%w: webhook secret not configured", domain.ErrIntegrity)
	ErrCallbackInFlight   = fmt.Errorf("%w: completion of this payment is already in progress", domain.ErrUnavailable)
)
