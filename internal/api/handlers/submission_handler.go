package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type SubmissionHandler struct {
	s       service.SubmissionService
	manager PostingManager
}

func NewSubmissionHandler(service service.SubmissionService, manager PostingManager) *SubmissionHandler {
	return &SubmissionHandler{s: service, manager: manager}
}

// CreateSubmission takes a multipart form with a JSON "submission" field and
// the files primary, thumbnail, fallback and additional.
func (h *SubmissionHandler) CreateSubmission(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	var in transfer.SubmissionCreation
	if err := json.Unmarshal([]byte(c.FormValue("submission")), &in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid submission data",
		})
	}

	uploads, err := readUploads(form)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sub, err := h.s.Create(c.Context(), &in, uploads)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (h *SubmissionHandler) ListSubmissions(c *fiber.Ctx) error {
	typ := models.SubmissionType(strings.ToUpper(c.Query("type")))
	subs, err := h.s.List(c.Context(), typ)
	if err != nil {
		return errorResponse(c, err)
	}
	if subs == nil {
		subs = []*models.Submission{}
	}
	return c.Status(fiber.StatusOK).JSON(subs)
}

func (h *SubmissionHandler) GetSubmission(c *fiber.Ctx) error {
	detail, err := h.s.Get(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(detail)
}

// RemoveSubmission refuses to delete a submission that is posting and drops
// it from the queue otherwise.
func (h *SubmissionHandler) RemoveSubmission(c *fiber.Ctx) error {
	id := c.Params("id")
	if h.manager.IsCurrentlyPosting(id) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Submission is posting",
		})
	}
	h.manager.Cancel(id)

	if err := h.s.Delete(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *SubmissionHandler) Schedule(c *fiber.Ctx) error {
	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if err := h.s.Schedule(c.Context(), c.Params("id"), req.PostAt); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Submission scheduled",
	})
}

func (h *SubmissionHandler) Unschedule(c *fiber.Ctx) error {
	sub, err := h.s.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	if sub == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Submission not found",
		})
	}
	if err := h.s.Unschedule(c.Context(), sub); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func readUploads(form *multipart.Form) (*transfer.SubmissionUploads, error) {
	uploads := &transfer.SubmissionUploads{}
	single := func(field string) (*transfer.FileUpload, error) {
		files := form.File[field]
		if len(files) == 0 {
			return nil, nil
		}
		return readFile(files[0])
	}

	var err error
	if uploads.Primary, err = single("primary"); err != nil {
		return nil, err
	}
	if uploads.Thumbnail, err = single("thumbnail"); err != nil {
		return nil, err
	}
	if uploads.Fallback, err = single("fallback"); err != nil {
		return nil, err
	}
	for _, fh := range form.File["additional"] {
		u, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		uploads.Additional = append(uploads.Additional, *u)
	}
	return uploads, nil
}

func readFile(fh *multipart.FileHeader) (*transfer.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}
	return &transfer.FileUpload{Name: fh.Filename, Data: data}, nil
}
