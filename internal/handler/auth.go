package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"moodboard-backend/internal/auth"
	"moodboard-backend/internal/config"
	"moodboard-backend/internal/service"
)

// AuthHandler register/login/session endpoints
type AuthHandler struct {
	users      *service.UserService
	jwtManager *auth.JWTManager
	cfg        config.AuthConfig
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(users *service.UserService, jwtManager *auth.JWTManager, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{users: users, jwtManager: jwtManager, cfg: cfg}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := h.users.Register(req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrDuplicate):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already registered"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to register"})
	}

	return h.issueTokens(c, user.ID, user.Email, user.Username, fiber.StatusCreated)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to log in"})
	}

	return h.issueTokens(c, user.ID, user.Email, user.Username, fiber.StatusOK)
}

func (h *AuthHandler) issueTokens(c *fiber.Ctx, userID int64, email, username string, status int) error {
	pair, err := h.jwtManager.Pair(userID, email, username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to issue token"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    pair.AccessToken,
		Expires:  time.Now().Add(h.cfg.AccessTokenExpiry),
		HTTPOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: "Lax",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    pair.RefreshToken,
		Expires:  time.Now().Add(h.cfg.RefreshTokenExpiry),
		HTTPOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: "Lax",
	})

	return c.Status(status).JSON(fiber.Map{
		"accessToken": pair.AccessToken,
		"user": fiber.Map{
			"id":       userID,
			"email":    email,
			"username": username,
		},
	})
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing refresh token"})
	}

	userID, err := h.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid refresh token"})
	}

	user, err := h.users.GetUser(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unknown user"})
	}
	return h.issueTokens(c, user.ID, user.Email, user.Username, fiber.StatusOK)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.users.GetUser(auth.UserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(user)
}

// Profile GET /api/auth/profile/:id
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	user, err := h.users.GetUser(int64(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Username,
	})
}
