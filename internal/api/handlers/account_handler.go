package handlers

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/maheshrc27/postflow/pkg/utils"
)

type AccountHandler struct {
	s   service.AccountService
	cfg config.Config
}

func NewAccountHandler(s service.AccountService, cfg config.Config) *AccountHandler {
	return &AccountHandler{s: s, cfg: cfg}
}

// AddAccount redirects to the website's consent page. state is the caller's
// token and comes back to CallbackHandler unchanged.
func (h *AccountHandler) AddAccount(c *fiber.Ctx) error {
	state := c.Query("state")
	if _, err := utils.ValidateToken(h.cfg.SecretKey, state); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	authURL, err := h.s.AuthURL(c.Params("website"), state)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Redirect(authURL)
}

func (h *AccountHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	site := c.Params("website")

	if _, err := utils.ValidateToken(h.cfg.SecretKey, state); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	if _, err := h.s.Connect(c.Context(), site, code); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to connect account",
		})
	}

	redirectURL := fmt.Sprintf("%s/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var in transfer.AccountCreation
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	account, err := h.s.Create(c.Context(), in.Website, in.Alias, in.Data)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accountList, err := h.s.List(c.Context(), c.Query("website"))
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch accounts",
		})
	}
	if accountList == nil {
		return c.Status(fiber.StatusOK).JSON([]any{})
	}
	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *AccountHandler) LoginStatuses(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.s.Statuses())
}

func (h *AccountHandler) RefreshAccount(c *fiber.Ctx) error {
	status, err := h.s.Refresh(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *AccountHandler) RemoveAccount(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
