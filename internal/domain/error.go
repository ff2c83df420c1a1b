package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAlreadyProcessed   = errors.New("payment reference already processed")
	ErrOperationFailed    = errors.New("operation failed")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInviteUnavailable  = errors.New("invite link unavailable")
	ErrMemberBusy         = errors.New("member is being processed by another request")
)
