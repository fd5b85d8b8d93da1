package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// LocalsUserID key under which middleware stores the requester id
	LocalsUserID = "user_id"
	// LocalsEmail key under which middleware stores the requester email
	LocalsEmail = "email"
	// LocalsUsername key under which middleware stores the requester name
	LocalsUsername = "username"

	accessTokenCookie = "access_token"
)

// TokenFromRequest pulls the access token from the Authorization header
// or the access_token cookie.
func TokenFromRequest(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Cookies(accessTokenCookie)
}

// TokenFromUpgrade pulls the access token for a websocket upgrade.
// Browsers cannot set headers on upgrade requests, so a token query
// parameter is accepted as a fallback.
func TokenFromUpgrade(c *fiber.Ctx) string {
	if token := TokenFromRequest(c); token != "" {
		return token
	}
	return c.Query("token")
}

// Middleware rejects requests without a valid access token and stores
// the caller's identity in c.Locals.
func Middleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := TokenFromRequest(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing access token",
			})
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			status := fiber.StatusUnauthorized
			msg := "invalid access token"
			if err == ErrExpiredToken {
				msg = "access token expired"
			}
			return c.Status(status).JSON(fiber.Map{"error": msg})
		}

		c.Locals(LocalsUserID, claims.UserID)
		c.Locals(LocalsEmail, claims.Email)
		c.Locals(LocalsUsername, claims.Username)
		return c.Next()
	}
}

// UserID reads the authenticated user id placed by Middleware.
func UserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalsUserID).(int64)
	return id
}

// Username reads the authenticated username placed by Middleware.
func Username(c *fiber.Ctx) string {
	name, _ := c.Locals(LocalsUsername).(string)
	return name
}
