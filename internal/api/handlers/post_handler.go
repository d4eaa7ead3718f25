package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/eventbus"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/valyala/fasthttp"
)

const keepAlive = 15 * time.Second

// PostingManager is the part of the posting manager the HTTP layer drives.
type PostingManager interface {
	Queue(sub *models.Submission)
	Cancel(id string)
	EmptyQueue(t models.SubmissionType)
	Queued() []*models.Submission
	GetPostingStatus() []models.PostInfo
	IsCurrentlyPosting(id string) bool
}

type PostHandler struct {
	manager     PostingManager
	submissions service.SubmissionService
	validator   service.ValidationService
	bus         eventbus.Bus
}

func NewPostHandler(manager PostingManager, submissions service.SubmissionService, validator service.ValidationService, bus eventbus.Bus) *PostHandler {
	return &PostHandler{
		manager:     manager,
		submissions: submissions,
		validator:   validator,
		bus:         bus,
	}
}

// Queue re-validates the submission and hands it to the manager.
func (h *PostHandler) Queue(c *fiber.Ctx) error {
	detail, err := h.submissions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	res, err := h.validator.Validate(c.Context(), detail.Submission, detail.Parts)
	if err != nil {
		return errorResponse(c, err)
	}
	if len(res.Problems) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Submission has unresolved problems",
			"problems": res.Problems,
			"warnings": res.Warnings,
		})
	}

	h.manager.Queue(detail.Submission)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":  "Submission queued",
		"warnings": res.Warnings,
	})
}

func (h *PostHandler) Cancel(c *fiber.Ctx) error {
	h.manager.Cancel(c.Params("id"))
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) ClearQueue(c *fiber.Ctx) error {
	typ := models.SubmissionType(strings.ToUpper(c.Params("type")))
	if !typ.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown submission type",
		})
	}
	h.manager.EmptyQueue(typ)
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) Status(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(models.PostingState{
		Queued:  h.manager.Queued(),
		Posting: h.manager.GetPostingStatus(),
	})
}

// Events streams bus events as server-sent events, starting with the current
// posting state.
func (h *PostHandler) Events(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	ch, unsubscribe := h.bus.Subscribe(64)
	initial := eventbus.Event{
		Type: eventbus.TypePostingState,
		Time: time.Now(),
		Data: models.PostingState{Queued: h.manager.Queued(), Posting: h.manager.GetPostingStatus()},
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		if err := writeEvent(w, initial); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := writeEvent(w, ev); err != nil {
					slog.Debug("event stream closed", "error", err)
					return
				}
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeEvent(w *bufio.Writer, ev eventbus.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	return w.Flush()
}
