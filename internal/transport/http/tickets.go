package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cmirandac/gatepass/internal/app"
	"github.com/cmirandac/gatepass/internal/domain"
)

// TicketIssuer is the surface the sales endpoints need.
type TicketIssuer interface {
	IssueTicket(ctx context.Context, in app.IssueTicketInput) (domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	VoidTicket(ctx context.Context, ticketID, reason string) (domain.Ticket, error)
	RenderScannableCode(ctx context.Context, ticketID string) ([]byte, error)
}

type issueTicketRequest struct {
	ZoneID     string `json:"zone_id"`
	HolderID   string `json:"holder_id"`
	HolderName string `json:"holder_name"`
}

type ticketResponse struct {
	ID         string    `json:"id"`
	Serial     int64     `json:"serial"`
	ZoneID     string    `json:"zone_id"`
	EventID    string    `json:"event_id"`
	HolderID   string    `json:"holder_id"`
	HolderName string    `json:"holder_name"`
	State      string    `json:"state"`
	Token      string    `json:"token,omitempty"`
	VoidReason string    `json:"void_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toTicketResponse(t domain.Ticket, includeToken bool) ticketResponse {
	out := ticketResponse{
		ID:         t.ID,
		Serial:     t.Serial,
		ZoneID:     t.ZoneID,
		EventID:    t.EventID,
		HolderID:   t.HolderID,
		HolderName: t.HolderName,
		State:      string(t.State),
		VoidReason: t.VoidReason,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if includeToken {
		out.Token = t.IssuedToken
	}
	return out
}

// HandleIssueTicket creates a ticket for a holder in a zone. The issued
// token is returned once, here; later reads omit it.
func HandleIssueTicket(svc TicketIssuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req issueTicketRequest
		if err := c.Bind(&req); err != nil {
			return writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		}

		ticket, err := svc.IssueTicket(c.Request().Context(), app.IssueTicketInput{
			ZoneID:     req.ZoneID,
			HolderID:   req.HolderID,
			HolderName: req.HolderName,
		})
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusCreated, toTicketResponse(ticket, true))
	}
}

func HandleGetTicket(svc TicketIssuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		ticket, err := svc.GetTicket(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, toTicketResponse(ticket, false))
	}
}

type voidTicketRequest struct {
	Reason string `json:"reason"`
}

func HandleVoidTicket(svc TicketIssuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req voidTicketRequest
		if err := c.Bind(&req); err != nil {
			return writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		}

		ticket, err := svc.VoidTicket(c.Request().Context(), c.Param("id"), req.Reason)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, toTicketResponse(ticket, false))
	}
}

// HandleTicketQR streams the ticket's scannable code as a PNG.
func HandleTicketQR(svc TicketIssuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		png, err := svc.RenderScannableCode(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Blob(http.StatusOK, "image/png", png)
	}
}
