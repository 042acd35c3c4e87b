package domain

import "errors"

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrZoneNotFound      = errors.New("zone not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrInvalidID         = errors.New("invalid id")
	ErrEventNameRequired = errors.New("event name required")
	ErrZoneNameRequired  = errors.New("zone name required")
	ErrZoneAlreadyExists = errors.New("zone already exists")
	ErrInvalidCapacity   = errors.New("invalid capacity")

	ErrCapacityExceeded    = errors.New("zone capacity exceeded")
	ErrHolderLimitExceeded = errors.New("holder ticket limit exceeded")
	ErrInvalidHolderID     = errors.New("invalid holder id")
	ErrHolderNameRequired  = errors.New("holder name required")

	ErrAlreadyConsumed    = errors.New("ticket already consumed")
	ErrCannotVoidUsed     = errors.New("cannot void a used ticket")
	ErrAlreadyVoided      = errors.New("ticket already voided")
	ErrVoidReasonRequired = errors.New("void reason required")

	ErrNotAuthorized = errors.New("not authorized")
)
