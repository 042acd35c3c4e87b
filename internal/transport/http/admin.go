package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cmirandac/gatepass/internal/app"
	"github.com/cmirandac/gatepass/internal/domain"
)

type EventAdmin interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	ActivateEvent(ctx context.Context, eventID string) error
	CreateZone(ctx context.Context, in app.CreateZoneInput) (domain.Zone, error)
	ListZones(ctx context.Context, eventID string) ([]domain.Zone, error)
}

// TokenRegenerator rotates issued tokens for an event.
type TokenRegenerator interface {
	RegenerateEventTokens(ctx context.Context, eventID string) (int, error)
}

type createEventRequest struct {
	Name     string     `json:"name"`
	StartsAt *time.Time `json:"starts_at"`
}

type eventResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	Active   bool      `json:"active"`
}

func HandleCreateEvent(svc EventAdmin) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createEventRequest
		if err := c.Bind(&req); err != nil {
			return writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		}

		event, err := svc.CreateEvent(c.Request().Context(), app.CreateEventInput{
			Name:     req.Name,
			StartsAt: req.StartsAt,
		})
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusCreated, toEventResponse(event))
	}
}

func HandleListEvents(svc EventAdmin) echo.HandlerFunc {
	return func(c echo.Context) error {
		events, err := svc.ListEvents(c.Request().Context())
		if err != nil {
			return writeDomainError(c, err)
		}
		out := make([]eventResponse, 0, len(events))
		for _, e := range events {
			out = append(out, toEventResponse(e))
		}
		return c.JSON(http.StatusOK, out)
	}
}

func HandleActivateEvent(svc EventAdmin) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.ActivateEvent(c.Request().Context(), c.Param("id")); err != nil {
			return writeDomainError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type createZoneRequest struct {
	Name       string `json:"name"`
	Capacity   int    `json:"capacity"`
	PriceCents int64  `json:"price_cents"`
}

type zoneResponse struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	ActiveCount int    `json:"active_count"`
	Remaining   int    `json:"remaining"`
	PriceCents  int64  `json:"price_cents"`
}

func HandleCreateZone(svc EventAdmin) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createZoneRequest
		if err := c.Bind(&req); err != nil {
			return writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		}

		zone, err := svc.CreateZone(c.Request().Context(), app.CreateZoneInput{
			EventID:    c.Param("id"),
			Name:       req.Name,
			Capacity:   req.Capacity,
			PriceCents: req.PriceCents,
		})
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusCreated, toZoneResponse(zone))
	}
}

func HandleListZones(svc EventAdmin) echo.HandlerFunc {
	return func(c echo.Context) error {
		zones, err := svc.ListZones(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		out := make([]zoneResponse, 0, len(zones))
		for _, z := range zones {
			out = append(out, toZoneResponse(z))
		}
		return c.JSON(http.StatusOK, out)
	}
}

type regenerateResponse struct {
	Regenerated int `json:"regenerated"`
}

// HandleRegenerateTokens rotates every ACTIVE ticket token for an event.
// Buyers need their codes re-delivered afterwards; old codes scan as cloned.
func HandleRegenerateTokens(svc TokenRegenerator) echo.HandlerFunc {
	return func(c echo.Context) error {
		n, err := svc.RegenerateEventTokens(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, regenerateResponse{Regenerated: n})
	}
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{ID: e.ID, Name: e.Name, StartsAt: e.StartsAt, Active: e.Active}
}

func toZoneResponse(z domain.Zone) zoneResponse {
	return zoneResponse{
		ID:          z.ID,
		EventID:     z.EventID,
		Name:        z.Name,
		Capacity:    z.Capacity,
		ActiveCount: z.ActiveCount,
		Remaining:   z.Remaining(),
		PriceCents:  z.PriceCents,
	}
}
