package http

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/cmirandac/gatepass/internal/domain"
)

const (
	ctxOperatorID = "operator_id"
	ctxRole       = "role"
)

// JWTAuth validates a Bearer token signed with HS256 and stores the subject
// and role claims on the request context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return writeError(c, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return writeError(c, http.StatusUnauthorized, codeUnauthorized, "invalid token")
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return writeError(c, http.StatusUnauthorized, codeUnauthorized, "invalid claims")
			}
			sub, _ := claims["sub"].(string)
			roleClaim, _ := claims["role"].(string)
			role, ok := domain.ParseRole(roleClaim)
			if sub == "" || !ok {
				return writeError(c, http.StatusUnauthorized, codeUnauthorized, "invalid claims")
			}

			c.Set(ctxOperatorID, sub)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

// RequireAction gates a route on the capability check for the caller's role.
func RequireAction(action domain.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ctxRole).(domain.Role)
			if !ok || !role.Can(action) {
				return writeError(c, http.StatusForbidden, codeForbidden, "role not allowed to perform this action")
			}
			return next(c)
		}
	}
}

func operatorID(c echo.Context) string {
	id, _ := c.Get(ctxOperatorID).(string)
	return id
}
