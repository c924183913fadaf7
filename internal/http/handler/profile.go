package handler

import (
	"github.com/gofiber/fiber/v2"

	"portfolioapi/internal/model"
	"portfolioapi/internal/service"
)

// GetProfile godoc
// @Summary Site owner profile
// @Tags profile
// @Success 200 {object} model.Profile
// @Router /profile [get]
func GetProfile(svc service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := svc.Get(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	}
}

// UpdateProfile godoc
// @Summary Replace the profile
// @Tags profile
// @Accept json
// @Security BearerAuth
// @Success 200 {object} model.Profile
// @Router /profile [put]
func UpdateProfile(svc service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p model.Profile
		if err := c.BodyParser(&p); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		}
		out, err := svc.Update(c.UserContext(), p)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	}
}
