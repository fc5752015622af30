package controller

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"mailpilot/engine"
	"mailpilot/models"
	"mailpilot/store"
	"mailpilot/utils"
)

type EmailController struct {
	store  *store.Store
	engine *engine.Engine
	logger *log.Logger
}

func NewEmailController(st *store.Store, eng *engine.Engine, logger *log.Logger) *EmailController {
	return &EmailController{
		store:  st,
		engine: eng,
		logger: logger,
	}
}

// IngestRequest is the onEmailArrived callback payload from an external
// email source.
type IngestRequest struct {
	MessageID       string     `json:"message_id" validate:"required"`
	From            string     `json:"from" validate:"required,email"`
	SenderCategory  string     `json:"sender_category" validate:"omitempty,oneof=internal_staff internal_leader peer_staff peer_leader cross_org_leader external allowlist"`
	Recipients      []string   `json:"recipients"`
	Subject         string     `json:"subject"`
	Body            string     `json:"body"`
	AttachmentCount int        `json:"attachment_count" validate:"gte=0"`
	Size            int64      `json:"size" validate:"gte=0"`
	ArrivedAt       *time.Time `json:"arrived_at"`
	DeadlineAt      *time.Time `json:"deadline_at"`
}

// IngestEmail accepts a newly arrived email, runs it through the rule
// engine and returns the processing outcome.
func (ec *EmailController) IngestEmail(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	// Replays of the same message return the original email untouched
	if existing, err := ec.store.GetEmailByMessageID(req.MessageID); err == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Email already ingested",
			"email":   existing,
		})
	} else if err != store.ErrNotFound {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check for existing email", err)
	}

	arrivedAt := time.Now()
	if req.ArrivedAt != nil {
		arrivedAt = *req.ArrivedAt
	}

	category := req.SenderCategory
	if category == "" {
		category = utils.ResolveSenderCategory(req.From)
	}

	email := models.Email{
		MessageID:       req.MessageID,
		From:            req.From,
		SenderCategory:  category,
		Recipients:      req.Recipients,
		Subject:         req.Subject,
		Body:            req.Body,
		AttachmentCount: req.AttachmentCount,
		Size:            req.Size,
		ArrivedAt:       arrivedAt,
		DeadlineAt:      req.DeadlineAt,
	}

	if err := ec.store.CreateEmail(&email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save email", err)
	}

	outcome, err := ec.engine.ProcessEmail(&email)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process email", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"email":   email,
		"outcome": outcome,
	})
}

// GetEmailState returns the processing state snapshot for the UI/search layer.
func (ec *EmailController) GetEmailState(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email ID", err)
	}

	email, err := ec.store.GetEmail(uint(id))
	if err == store.ErrNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Email not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch email", err)
	}

	return c.JSON(utils.SuccessResponse(email.State()))
}
