package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cmirandac/gatepass/internal/app"
	"github.com/cmirandac/gatepass/internal/domain"
)

func TestHandleScan(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	validator := signToken(t, "op-1", domain.RoleValidator)

	t.Run("admitted maps to 200 with holder identity", func(t *testing.T) {
		var got app.ScanInput
		stub := &stubServices{scanFn: func(ctx context.Context, in app.ScanInput) app.AdmissionResult {
			got = in
			return app.AdmissionResult{
				Code:         app.AdmissionAdmitted,
				Admitted:     true,
				TicketID:     "ticket-1",
				HolderID:     "12345678",
				HolderName:   "Maria Quispe",
				ZoneName:     "VIP",
				ValidationID: "val-1",
				Timestamp:    now,
			}
		}}
		e := newTestServer(stub)

		rec := doJSON(e, http.MethodPost, "/gate/scan", validator,
			`{"code":"tok-abc","device":"gate-A","observations":"manual check"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Code != "tok-abc" || got.Device != "gate-A" || got.Observations != "manual check" {
			t.Fatalf("scan input not forwarded: %+v", got)
		}
		if got.OperatorID != "op-1" {
			t.Fatalf("operator must come from the JWT subject, got %q", got.OperatorID)
		}

		body := decodeBody[scanResponse](t, rec)
		if !body.Admitted || body.HolderName != "Maria Quispe" || body.Zone != "VIP" {
			t.Fatalf("unexpected body: %+v", body)
		}
	})

	t.Run("status by rejection code", func(t *testing.T) {
		cases := []struct {
			code   app.AdmissionCode
			alert  bool
			status int
		}{
			{app.RejectForgedOrExpired, true, http.StatusForbidden},
			{app.RejectUnknownTicket, true, http.StatusForbidden},
			{app.RejectClonedToken, true, http.StatusForbidden},
			{app.RejectWrongEvent, false, http.StatusConflict},
			{app.RejectAlreadyConsumed, false, http.StatusConflict},
			{app.RejectSystemError, false, http.StatusServiceUnavailable},
		}
		for _, tc := range cases {
			tc := tc
			t.Run(string(tc.code), func(t *testing.T) {
				stub := &stubServices{scanFn: func(ctx context.Context, in app.ScanInput) app.AdmissionResult {
					return app.AdmissionResult{Code: tc.code, Alert: tc.alert, Timestamp: now}
				}}
				rec := doJSON(newTestServer(stub), http.MethodPost, "/gate/scan", validator, `{"code":"x"}`)
				if rec.Code != tc.status {
					t.Fatalf("expected %d, got %d", tc.status, rec.Code)
				}
				body := decodeBody[scanResponse](t, rec)
				if body.Admitted {
					t.Fatal("rejection must not read as admitted")
				}
				if body.Alert != tc.alert {
					t.Fatalf("alert flag mismatch: %+v", body)
				}
			})
		}
	})

	t.Run("already consumed carries prior use", func(t *testing.T) {
		priorAt := now.Add(-10 * time.Minute)
		stub := &stubServices{scanFn: func(ctx context.Context, in app.ScanInput) app.AdmissionResult {
			return app.AdmissionResult{
				Code:      app.RejectAlreadyConsumed,
				TicketID:  "ticket-1",
				Timestamp: now,
				PriorUse: &domain.ValidationRecord{
					ID: "val-0", TicketID: "ticket-1", OperatorID: "op-9", RecordedAt: priorAt,
				},
			}
		}}
		rec := doJSON(newTestServer(stub), http.MethodPost, "/gate/scan", validator, `{"code":"x"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		body := decodeBody[scanResponse](t, rec)
		if body.PriorUseBy != "op-9" || body.PriorUseAt == nil || !body.PriorUseAt.Equal(priorAt) {
			t.Fatalf("prior use not surfaced: %+v", body)
		}
	})

	t.Run("missing code is rejected before the service", func(t *testing.T) {
		stub := &stubServices{scanFn: func(ctx context.Context, in app.ScanInput) app.AdmissionResult {
			t.Fatal("service must not be called")
			return app.AdmissionResult{}
		}}
		rec := doJSON(newTestServer(stub), http.MethodPost, "/gate/scan", validator, `{"device":"gate-A"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleMyValidations(t *testing.T) {
	t.Parallel()

	stub := &stubServices{myValsFn: func(ctx context.Context, operatorID string) ([]domain.ValidationRecord, error) {
		if operatorID != "op-1" {
			t.Fatalf("expected op-1, got %q", operatorID)
		}
		return []domain.ValidationRecord{
			{ID: "val-1", TicketID: "ticket-1", OperatorID: operatorID},
		}, nil
	}}
	rec := doJSON(newTestServer(stub), http.MethodGet, "/gate/validations/mine",
		signToken(t, "op-1", domain.RoleValidator), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[[]validationResponse](t, rec)
	if len(body) != 1 || body[0].ID != "val-1" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
