// Package http wires the service layer to echo routes. Every route except
// health sits behind JWT auth plus a role capability check; the scan route
// additionally gets per-operator rate limiting.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cmirandac/gatepass/internal/domain"
)

// GateAPI combines the scan write path with the validation read side.
type GateAPI interface {
	Scanner
	ValidationLister
}

type Services struct {
	Tickets     TicketIssuer
	Gate        GateAPI
	Admin       EventAdmin
	Regenerator TokenRegenerator
}

type Options struct {
	JWTSecret         string
	Redis             *redis.Client
	ScanRatePerMinute int
}

func RegisterRoutes(e *echo.Echo, svcs Services, opts Options) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	auth := JWTAuth(opts.JWTSecret)

	sales := e.Group("/tickets", auth)
	sales.POST("", HandleIssueTicket(svcs.Tickets), RequireAction(domain.ActionIssueTicket))
	sales.GET("/:id", HandleGetTicket(svcs.Tickets))
	sales.GET("/:id/qr", HandleTicketQR(svcs.Tickets))
	sales.POST("/:id/void", HandleVoidTicket(svcs.Tickets), RequireAction(domain.ActionVoidTicket))

	gate := e.Group("/gate", auth)
	gate.POST("/scan", HandleScan(svcs.Gate), RequireAction(domain.ActionValidateScan), ScanRateLimit(opts.Redis, opts.ScanRatePerMinute))
	gate.GET("/validations/mine", HandleMyValidations(svcs.Gate), RequireAction(domain.ActionViewValidations))

	admin := e.Group("/admin", auth, RequireAction(domain.ActionManageEvents))
	admin.POST("/events", HandleCreateEvent(svcs.Admin))
	admin.GET("/events", HandleListEvents(svcs.Admin))
	admin.POST("/events/:id/activate", HandleActivateEvent(svcs.Admin))
	admin.POST("/events/:id/zones", HandleCreateZone(svcs.Admin))
	admin.GET("/events/:id/zones", HandleListZones(svcs.Admin))
	admin.POST("/events/:id/regenerate-tokens", HandleRegenerateTokens(svcs.Regenerator))
	admin.GET("/events/:id/validations", HandleEventValidations(svcs.Gate))
}
