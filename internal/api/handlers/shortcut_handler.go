package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
)

type ShortcutHandler struct {
	s service.ShortcutService
}

func NewShortcutHandler(s service.ShortcutService) *ShortcutHandler {
	return &ShortcutHandler{s: s}
}

func (h *ShortcutHandler) ListShortcuts(c *fiber.Ctx) error {
	shortcuts, err := h.s.ListShortcuts(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	if shortcuts == nil {
		shortcuts = []*models.CustomShortcut{}
	}
	return c.JSON(shortcuts)
}

func (h *ShortcutHandler) SaveShortcut(c *fiber.Ctx) error {
	var sc models.CustomShortcut
	if err := c.BodyParser(&sc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}
	saved, err := h.s.SaveShortcut(c.Context(), &sc)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(saved)
}

func (h *ShortcutHandler) RemoveShortcut(c *fiber.Ctx) error {
	if err := h.s.RemoveShortcut(c.Context(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *ShortcutHandler) ListTagConverters(c *fiber.Ctx) error {
	converters, err := h.s.ListTagConverters(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	if converters == nil {
		converters = []*models.TagConverter{}
	}
	return c.JSON(converters)
}

func (h *ShortcutHandler) SaveTagConverter(c *fiber.Ctx) error {
	var tc models.TagConverter
	if err := c.BodyParser(&tc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}
	saved, err := h.s.SaveTagConverter(c.Context(), &tc)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(saved)
}

func (h *ShortcutHandler) RemoveTagConverter(c *fiber.Ctx) error {
	if err := h.s.RemoveTagConverter(c.Context(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
