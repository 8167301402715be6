package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/app/repository"
	"github.com/HexGuardSec/HexGuard/internal/pkg/database"
	"github.com/HexGuardSec/HexGuard/internal/pkg/env"
	"github.com/HexGuardSec/HexGuard/internal/pkg/hcaptcha"
	"github.com/HexGuardSec/HexGuard/internal/pkg/mail"
	"github.com/HexGuardSec/HexGuard/internal/pkg/session"
	"github.com/HexGuardSec/HexGuard/internal/pkg/statistics"
)

type registerRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthRegister creates a new account and sends the activation mail.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	// Captcha is only enforced when a secret is configured
	if env.GetEnv("HCAPTCHA_SECRET", "") != "" {
		valid, err := hcaptcha.Verify(req.CaptchaToken)
		if err != nil || !valid {
			if err != nil {
				log.Warnf("[Auth] Captcha verification failed: %v", err)
			}
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "Captcha validation failed")
		}
	}

	user, err := models.CreateUser(req.Username, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	if err := user.GenerateActivationToken(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not create account")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if err := userRepo.Create(user); err != nil {
		return jsonError(c, fiber.StatusConflict, "registration_failed", "Could not create account")
	}

	if _, err := models.GetOrCreateProfile(database.GetDB(), user.ID); err != nil {
		log.Errorf("[Auth] Failed to create profile for user %d: %v", user.ID, err)
	}

	if user.ActivationToken != "" {
		go func(email, token string) {
			base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
			body := fmt.Sprintf("Welcome to HexGuard!<br><br>Activate your account: %s/activate?token=%s", base, token)
			if err := mail.SendMail(email, "Activate your HexGuard account", body); err != nil {
				log.Warnf("[Auth] Activation mail to %s failed: %v", email, err)
			}
		}(user.Email, user.ActivationToken)
	}

	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Name,
		"email":    user.Email,
		"status":   user.Status,
	})
}

// HandleAuthLogin verifies credentials and opens a session.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		// Same answer for unknown accounts and wrong passwords
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
	}

	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_inactive", "Account is not activated")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Session could not be created")
	}

	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)

	if err := sess.Save(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Session could not be saved")
	}

	database.GetDB().Model(user).Update("last_login_at", time.Now())

	// Cache the plan so the user context middleware skips the profile lookup
	if profile, err := models.GetOrCreateProfile(database.GetDB(), user.ID); err == nil {
		_ = session.SetSessionValue(c, "user_plan", profile.Plan)
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Name,
		"email":    user.Email,
		"is_admin": user.Role == models.ROLE_ADMIN,
	})
}

// HandleAuthLogout destroys the current session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return c.JSON(fiber.Map{"ok": true})
	}

	if err := sess.Destroy(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Logout failed")
	}

	c.Locals(FROM_PROTECTED, false)

	return c.JSON(fiber.Map{"ok": true})
}

// HandleAuthActivate activates an account via the mailed token.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		if err := c.BodyParser(&body); err == nil {
			token = strings.TrimSpace(body.Token)
		}
	}
	if token == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Activation token missing")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByActivationToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Invalid activation token")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Activation failed")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	user.ActivationSentAt = nil
	if err := userRepo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Activation failed")
	}

	return c.JSON(fiber.Map{"ok": true, "status": user.Status})
}
