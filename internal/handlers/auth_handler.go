package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wellnessai/engagement-backend/internal/dto"
	"github.com/wellnessai/engagement-backend/internal/middleware"
	"github.com/wellnessai/engagement-backend/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body"))
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(dto.Fail(err.Error()))
		case errors.Is(err, services.ErrWeakPassword):
			return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error()))
		}
		return internalError(c, err, "registration failed")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(resp))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body"))
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail(err.Error()))
		}
		return internalError(c, err, "login failed")
	}
	return c.JSON(dto.OK(resp))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("refresh_token is required"))
	}

	resp, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail(err.Error()))
		}
		return internalError(c, err, "token refresh failed")
	}
	return c.JSON(dto.OK(resp))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("refresh_token is required"))
	}
	if err := h.auth.Logout(req.RefreshToken); err != nil {
		return internalError(c, err, "logout failed")
	}
	return c.JSON(dto.OKMessage("logged out", nil))
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}
	user, err := h.auth.GetUser(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.Fail("user not found"))
	}
	return c.JSON(dto.OK(services.UserToResponse(user)))
}
