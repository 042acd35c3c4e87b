package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cmirandac/gatepass/internal/app"
	"github.com/cmirandac/gatepass/internal/domain"
)

// scanTimeout bounds how long a gate decision may take. A scan that cannot
// reach storage in time fails closed as SYSTEM_ERROR.
const scanTimeout = 5 * time.Second

// Scanner is the minimal surface the scan handler needs.
type Scanner interface {
	ValidateScan(ctx context.Context, in app.ScanInput) app.AdmissionResult
}

type scanRequest struct {
	Code         string `json:"code"`
	Device       string `json:"device"`
	Observations string `json:"observations"`
}

type scanResponse struct {
	Admitted     bool       `json:"admitted"`
	Code         string     `json:"code"`
	Alert        bool       `json:"alert,omitempty"`
	TicketID     string     `json:"ticket_id,omitempty"`
	HolderID     string     `json:"holder_id,omitempty"`
	HolderName   string     `json:"holder_name,omitempty"`
	Zone         string     `json:"zone,omitempty"`
	ValidationID string     `json:"validation_id,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	PriorUseAt   *time.Time `json:"prior_use_at,omitempty"`
	PriorUseBy   string     `json:"prior_use_by,omitempty"`
}

// HandleScan is the sole write path for ticket consumption.
func HandleScan(svc Scanner) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req scanRequest
		if err := c.Bind(&req); err != nil {
			return writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		}
		if req.Code == "" {
			return writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "code is required")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), scanTimeout)
		defer cancel()

		res := svc.ValidateScan(ctx, app.ScanInput{
			Code:         req.Code,
			OperatorID:   operatorID(c),
			Device:       req.Device,
			Observations: req.Observations,
		})

		return c.JSON(admissionStatus(res), toScanResponse(res))
	}
}

// admissionStatus keeps the operator app's handling simple: 200 only when
// someone may walk through the gate.
func admissionStatus(res app.AdmissionResult) int {
	switch res.Code {
	case app.AdmissionAdmitted:
		return http.StatusOK
	case app.RejectAlreadyConsumed, app.RejectWrongEvent:
		return http.StatusConflict
	case app.RejectSystemError:
		return http.StatusServiceUnavailable
	default:
		// Forgery-class rejections.
		return http.StatusForbidden
	}
}

func toScanResponse(res app.AdmissionResult) scanResponse {
	out := scanResponse{
		Admitted:     res.Admitted,
		Code:         string(res.Code),
		Alert:        res.Alert,
		TicketID:     res.TicketID,
		HolderID:     res.HolderID,
		HolderName:   res.HolderName,
		Zone:         res.ZoneName,
		ValidationID: res.ValidationID,
		Timestamp:    res.Timestamp,
	}
	if res.PriorUse != nil {
		t := res.PriorUse.RecordedAt
		out.PriorUseAt = &t
		out.PriorUseBy = res.PriorUse.OperatorID
	}
	return out
}

// ValidationLister exposes the admission history read side.
type ValidationLister interface {
	EventValidations(ctx context.Context, eventID string) ([]domain.ValidationRecord, error)
	OperatorValidations(ctx context.Context, operatorID string) ([]domain.ValidationRecord, error)
}

type validationResponse struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticket_id"`
	OperatorID   string    `json:"operator_id"`
	Observations string    `json:"observations,omitempty"`
	Device       string    `json:"device,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// HandleEventValidations lists admissions for one event.
func HandleEventValidations(svc ValidationLister) echo.HandlerFunc {
	return func(c echo.Context) error {
		records, err := svc.EventValidations(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, toValidationResponses(records))
	}
}

// HandleMyValidations lists the calling operator's own admissions.
func HandleMyValidations(svc ValidationLister) echo.HandlerFunc {
	return func(c echo.Context) error {
		records, err := svc.OperatorValidations(c.Request().Context(), operatorID(c))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, toValidationResponses(records))
	}
}

func toValidationResponses(records []domain.ValidationRecord) []validationResponse {
	out := make([]validationResponse, 0, len(records))
	for _, v := range records {
		out = append(out, validationResponse{
			ID:           v.ID,
			TicketID:     v.TicketID,
			OperatorID:   v.OperatorID,
			Observations: v.Observations,
			Device:       v.Device,
			RecordedAt:   v.RecordedAt,
		})
	}
	return out
}
