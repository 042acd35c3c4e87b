package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// scanLimitScript counts scans per operator in a fixed one-minute window.
// The count and the expiry are set in one script execution so two gates
// sharing an operator id cannot race the window into never expiring.
var scanLimitScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// ScanRateLimit throttles scan attempts per operator. A flood of scans from
// one operator id is either a misconfigured device or someone brute-forcing
// codes at a gate; both deserve backpressure. With no redis configured the
// middleware is a pass-through.
func ScanRateLimit(rdb *redis.Client, perMinute int) echo.MiddlewareFunc {
	if rdb == nil || perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	window := time.Minute
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("gatepass:scanrate:%s", operatorID(c))

			n, err := scanLimitScript.Run(c.Request().Context(), rdb, []string{key}, int(window.Seconds())).Int64()
			if err != nil {
				// Rate limiting is protective, not load-bearing; if redis
				// is down the scan still goes through.
				return next(c)
			}
			if n > int64(perMinute) {
				c.Response().Header().Set("Retry-After", "60")
				return writeError(c, http.StatusTooManyRequests, codeRateLimited, "scan rate limit exceeded")
			}
			return next(c)
		}
	}
}
