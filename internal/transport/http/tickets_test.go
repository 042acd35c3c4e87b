package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/cmirandac/gatepass/internal/app"
	"github.com/cmirandac/gatepass/internal/domain"
)

func TestHandleIssueTicket(t *testing.T) {
	t.Parallel()

	seller := signToken(t, "seller-1", domain.RoleSeller)

	t.Run("creates ticket and returns the token once", func(t *testing.T) {
		stub := &stubServices{issueFn: func(ctx context.Context, in app.IssueTicketInput) (domain.Ticket, error) {
			if in.ZoneID != "zone-1" || in.HolderID != "12345678" {
				t.Fatalf("input not forwarded: %+v", in)
			}
			return domain.Ticket{
				ID: "ticket-1", Serial: 7, ZoneID: in.ZoneID, EventID: "event-1",
				HolderID: in.HolderID, HolderName: in.HolderName,
				State: domain.TicketStateActive, IssuedToken: "tok-secret",
			}, nil
		}}
		rec := doJSON(newTestServer(stub), http.MethodPost, "/tickets", seller,
			`{"zone_id":"zone-1","holder_id":"12345678","holder_name":"Maria Quispe"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody[ticketResponse](t, rec)
		if body.Token != "tok-secret" || body.Serial != 7 {
			t.Fatalf("issuance response must carry the token: %+v", body)
		}
	})

	t.Run("maps domain failures", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{domain.ErrCapacityExceeded, http.StatusConflict, codeCapacityExceeded},
			{domain.ErrHolderLimitExceeded, http.StatusConflict, codeHolderLimitExceeded},
			{domain.ErrInvalidHolderID, http.StatusBadRequest, codeInvalidHolderID},
			{domain.ErrZoneNotFound, http.StatusNotFound, codeZoneNotFound},
		}
		for _, tc := range cases {
			stub := &stubServices{issueFn: func(ctx context.Context, in app.IssueTicketInput) (domain.Ticket, error) {
				return domain.Ticket{}, tc.err
			}}
			rec := doJSON(newTestServer(stub), http.MethodPost, "/tickets", seller, `{}`)
			if rec.Code != tc.status {
				t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
			}
			body := decodeBody[errorResponse](t, rec)
			if body.Code != tc.code {
				t.Fatalf("%v: expected code %q, got %q", tc.err, tc.code, body.Code)
			}
		}
	})
}

func TestHandleGetTicket(t *testing.T) {
	t.Parallel()

	stub := &stubServices{getFn: func(ctx context.Context, id string) (domain.Ticket, error) {
		if id != "ticket-1" {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{ID: id, State: domain.TicketStateActive, IssuedToken: "tok-secret"}, nil
	}}
	e := newTestServer(stub)
	admin := signToken(t, "admin-1", domain.RoleAdmin)

	rec := doJSON(e, http.MethodGet, "/tickets/ticket-1", admin, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[ticketResponse](t, rec)
	if body.Token != "" {
		t.Fatal("reads must not leak the issued token")
	}

	rec = doJSON(e, http.MethodGet, "/tickets/missing", admin, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleVoidTicket(t *testing.T) {
	t.Parallel()

	admin := signToken(t, "admin-1", domain.RoleAdmin)

	t.Run("voids with reason", func(t *testing.T) {
		stub := &stubServices{voidFn: func(ctx context.Context, id, reason string) (domain.Ticket, error) {
			if id != "ticket-1" || reason != "refund requested" {
				t.Fatalf("unexpected call: id=%q reason=%q", id, reason)
			}
			return domain.Ticket{ID: id, State: domain.TicketStateVoid, VoidReason: reason}, nil
		}}
		rec := doJSON(newTestServer(stub), http.MethodPost, "/tickets/ticket-1/void", admin,
			`{"reason":"refund requested"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody[ticketResponse](t, rec)
		if body.State != string(domain.TicketStateVoid) {
			t.Fatalf("unexpected body: %+v", body)
		}
	})

	t.Run("used ticket conflicts", func(t *testing.T) {
		stub := &stubServices{voidFn: func(ctx context.Context, id, reason string) (domain.Ticket, error) {
			return domain.Ticket{}, domain.ErrCannotVoidUsed
		}}
		rec := doJSON(newTestServer(stub), http.MethodPost, "/tickets/ticket-1/void", admin,
			`{"reason":"refund"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestHandleTicketQR(t *testing.T) {
	t.Parallel()

	png := []byte{0x89, 'P', 'N', 'G'}
	stub := &stubServices{qrFn: func(ctx context.Context, id string) ([]byte, error) {
		return png, nil
	}}
	rec := doJSON(newTestServer(stub), http.MethodGet, "/tickets/ticket-1/qr",
		signToken(t, "seller-1", domain.RoleSeller), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if rec.Body.Len() != len(png) {
		t.Fatalf("expected %d bytes, got %d", len(png), rec.Body.Len())
	}
}
