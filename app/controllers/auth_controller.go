package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/andrefurlan/adega/app/models"
	"github.com/andrefurlan/adega/app/repository"
	"github.com/andrefurlan/adega/internal/pkg/middleware"
	"github.com/andrefurlan/adega/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new user account.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return internalError(c, "could not create user")
	}
	if err := user.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(user.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "email already registered"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("register lookup failed: %v", err)
		return internalError(c, "could not create user")
	}

	if err := repo.Create(user); err != nil {
		log.Errorf("register create failed: %v", err)
		return internalError(c, "could not create user")
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleLogin verifies credentials and issues a session token.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !user.CheckPassword(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "invalid credentials"})
	}
	if user.Status != models.UserStatusActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "account disabled"})
	}

	token, err := middleware.IssueSessionToken(user.ID)
	if err != nil {
		log.Errorf("session token issue failed: %v", err)
		return internalError(c, "could not create session")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repo.Update(user); err != nil {
		log.Warnf("last login update failed for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{"token": token, "user": user})
}

// HandleLogout revokes the current session token.
func HandleLogout(c *fiber.Ctx) error {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if err := middleware.RevokeSessionToken(token); err != nil {
		log.Warnf("session revoke failed: %v", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleMe returns the authenticated user's context.
func HandleMe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	return c.JSON(userCtx)
}
