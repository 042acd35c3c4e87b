package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cmirandac/gatepass/internal/domain"
)

const (
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeEventNameRequired   = "event_name_required"
	codeZoneNameRequired    = "zone_name_required"
	codeZoneAlreadyExists   = "zone_already_exists"
	codeInvalidCapacity     = "invalid_capacity"
	codeEventNotFound       = "event_not_found"
	codeZoneNotFound        = "zone_not_found"
	codeTicketNotFound      = "ticket_not_found"
	codeCapacityExceeded    = "capacity_exceeded"
	codeHolderLimitExceeded = "holder_limit_exceeded"
	codeInvalidHolderID     = "invalid_holder_id"
	codeHolderNameRequired  = "holder_name_required"
	codeCannotVoidUsed      = "cannot_void_used_ticket"
	codeAlreadyVoided       = "ticket_already_voided"
	codeVoidReasonRequired  = "void_reason_required"
	codeForbidden           = "forbidden"
	codeUnauthorized        = "unauthorized"
	codeRateLimited         = "rate_limited"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeDomainError maps domain sentinels onto HTTP statuses. Unknown errors
// collapse to a generic 500 so no storage detail leaks to clients.
func writeDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		return writeError(c, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrZoneNotFound):
		return writeError(c, http.StatusNotFound, codeZoneNotFound, err.Error())
	case errors.Is(err, domain.ErrTicketNotFound):
		return writeError(c, http.StatusNotFound, codeTicketNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		return writeError(c, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrEventNameRequired):
		return writeError(c, http.StatusBadRequest, codeEventNameRequired, err.Error())
	case errors.Is(err, domain.ErrZoneNameRequired):
		return writeError(c, http.StatusBadRequest, codeZoneNameRequired, err.Error())
	case errors.Is(err, domain.ErrZoneAlreadyExists):
		return writeError(c, http.StatusConflict, codeZoneAlreadyExists, err.Error())
	case errors.Is(err, domain.ErrInvalidCapacity):
		return writeError(c, http.StatusBadRequest, codeInvalidCapacity, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		return writeError(c, http.StatusConflict, codeCapacityExceeded, err.Error())
	case errors.Is(err, domain.ErrHolderLimitExceeded):
		return writeError(c, http.StatusConflict, codeHolderLimitExceeded, err.Error())
	case errors.Is(err, domain.ErrInvalidHolderID):
		return writeError(c, http.StatusBadRequest, codeInvalidHolderID, err.Error())
	case errors.Is(err, domain.ErrHolderNameRequired):
		return writeError(c, http.StatusBadRequest, codeHolderNameRequired, err.Error())
	case errors.Is(err, domain.ErrCannotVoidUsed):
		return writeError(c, http.StatusConflict, codeCannotVoidUsed, err.Error())
	case errors.Is(err, domain.ErrAlreadyVoided):
		return writeError(c, http.StatusConflict, codeAlreadyVoided, err.Error())
	case errors.Is(err, domain.ErrVoidReasonRequired):
		return writeError(c, http.StatusBadRequest, codeVoidReasonRequired, err.Error())
	default:
		return writeError(c, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeError(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, errorResponse{Error: msg, Code: code})
}
