package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/models"
)

type HistoryLister interface {
	List(ctx context.Context, limit int) ([]*models.SubmissionLog, error)
}

type HistoryHandler struct {
	logs HistoryLister
}

func NewHistoryHandler(logs HistoryLister) *HistoryHandler {
	return &HistoryHandler{logs: logs}
}

func (h *HistoryHandler) ListHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	logs, err := h.logs.List(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list posting history",
		})
	}
	if logs == nil {
		logs = []*models.SubmissionLog{}
	}
	return c.JSON(logs)
}
