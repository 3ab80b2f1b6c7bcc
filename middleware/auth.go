package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"squadreg/config"
	"squadreg/models"
	"squadreg/utils"
)

// Protected verifies the bearer identity token and stores the subject in the
// request locals. It does not require the subject to hold a slot yet; join
// happens before a member row exists.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization format",
			})
		}

		subject, err := utils.IdentityVerifier().Verify(tokenParts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("subject", subject)
		return c.Next()
	}
}

// Privileged requires the verified subject to resolve to a member row with
// the privileged flag. Runs after Protected.
func Privileged() fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject, _ := c.Locals("subject").(string)
		if subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		var member models.Member
		err := config.DB.First(&member, "external_subject_id = ?", subject).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"error": "Privileged access required",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal error",
			})
		}
		if !member.IsPrivileged {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Privileged access required",
			})
		}

		c.Locals("actor", &member)
		return c.Next()
	}
}
