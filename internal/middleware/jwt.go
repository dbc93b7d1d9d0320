package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/scholaris-io/results-api/internal/utils"
)

// JWTProtected validates the bearer token issued by the identity provider
// and exposes the caller as user_id / user_role locals. The pipeline
// trusts the role claim as-is; subject ownership and class supervision are
// checked against master data inside the services.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendErrorWithCode(c, fiber.StatusUnauthorized, utils.CodeUnauthorized, "missing or malformed bearer token", nil)
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendErrorWithCode(c, fiber.StatusUnauthorized, utils.CodeUnauthorized, "invalid token", nil)
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendErrorWithCode(c, fiber.StatusUnauthorized, utils.CodeUnauthorized, "invalid token claims", nil)
		}

		if id, ok := callerID(claims); ok {
			c.Locals("user_id", id)
		}
		if role := callerRole(claims); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// callerID accepts the numeric subject however the identity provider
// encodes it: JSON numbers decode as float64, some issuers stringify.
func callerID(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}

		switch v := value.(type) {
		case float64:
			if v >= 0 {
				return uint(v), true
			}
		case string:
			if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
				return uint(parsed), true
			}
		}
	}

	return 0, false
}

func callerRole(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			if role := strings.ToLower(strings.TrimSpace(v)); role != "" {
				return role
			}
		case []interface{}:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					continue
				}
				if role := strings.ToLower(strings.TrimSpace(s)); role != "" {
					return role
				}
			}
		}
	}

	return ""
}
