package controller

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"mailpilot/models"
	"mailpilot/store"
	"mailpilot/utils"
)

type NotificationController struct {
	store  *store.Store
	logger *log.Logger
}

func NewNotificationController(st *store.Store, logger *log.Logger) *NotificationController {
	return &NotificationController{
		store:  st,
		logger: logger,
	}
}

type NotificationRuleRequest struct {
	Name            string               `json:"name" validate:"required"`
	Type            string               `json:"type" validate:"required,oneof=arrival reminder digest"`
	Conditions      models.ConditionList `json:"conditions"`
	Methods         []string             `json:"methods" validate:"required,min=1,dive,oneof=desktop sound email"`
	IntervalMinutes int                  `json:"interval_minutes"`
	DigestTime      string               `json:"digest_time"`
	Enabled         *bool                `json:"enabled"`
	Priority        string               `json:"priority" validate:"omitempty,oneof=low normal high"`
}

type SettingsRequest struct {
	Enabled           bool     `json:"enabled"`
	DesktopEnabled    bool     `json:"desktop_enabled"`
	SoundEnabled      bool     `json:"sound_enabled"`
	EmailEnabled      bool     `json:"email_enabled"`
	Volume            int      `json:"volume" validate:"gte=0,lte=100"`
	QuietHoursEnabled bool     `json:"quiet_hours_enabled"`
	QuietHoursStart   string   `json:"quiet_hours_start"`
	QuietHoursEnd     string   `json:"quiet_hours_end"`
	WorkingDays       []string `json:"working_days" validate:"dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
}

func (nc *NotificationController) ListNotificationRules(c *fiber.Ctx) error {
	rules, err := nc.store.ListNotificationRules()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch notification rules", err)
	}
	return c.JSON(utils.SuccessResponse(rules))
}

func (nc *NotificationController) CreateNotificationRule(c *fiber.Ctx) error {
	var req NotificationRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	rule := models.NotificationRule{
		Name:            req.Name,
		Type:            req.Type,
		Conditions:      req.Conditions,
		Methods:         req.Methods,
		IntervalMinutes: req.IntervalMinutes,
		DigestTime:      req.DigestTime,
		Enabled:         req.Enabled == nil || *req.Enabled,
		Priority:        req.Priority,
	}
	if rule.Priority == "" {
		rule.Priority = "normal"
	}
	if err := utils.ValidateNotificationRule(&rule); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid notification rule", err)
	}

	if err := nc.store.CreateNotificationRule(&rule); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create notification rule", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(rule))
}

func (nc *NotificationController) UpdateNotificationRule(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid notification rule ID", err)
	}

	rule, err := nc.store.GetNotificationRule(uint(id))
	if err == store.ErrNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Notification rule not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch notification rule", err)
	}

	var req NotificationRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	rule.Name = req.Name
	rule.Type = req.Type
	rule.Conditions = req.Conditions
	rule.Methods = req.Methods
	rule.IntervalMinutes = req.IntervalMinutes
	rule.DigestTime = req.DigestTime
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Priority != "" {
		rule.Priority = req.Priority
	}
	if err := utils.ValidateNotificationRule(rule); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid notification rule", err)
	}

	if err := nc.store.UpdateNotificationRule(rule); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update notification rule", err)
	}
	return c.JSON(utils.SuccessResponse(rule))
}

func (nc *NotificationController) DeleteNotificationRule(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid notification rule ID", err)
	}

	if err := nc.store.DeleteNotificationRule(uint(id)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete notification rule", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Notification rule deleted",
	})
}

func (nc *NotificationController) GetSettings(c *fiber.Ctx) error {
	settings, err := nc.store.GetSettings()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch settings", err)
	}
	return c.JSON(utils.SuccessResponse(settings))
}

func (nc *NotificationController) UpdateSettings(c *fiber.Ctx) error {
	settings, err := nc.store.GetSettings()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch settings", err)
	}

	var req SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	settings.Enabled = req.Enabled
	settings.DesktopEnabled = req.DesktopEnabled
	settings.SoundEnabled = req.SoundEnabled
	settings.EmailEnabled = req.EmailEnabled
	settings.Volume = req.Volume
	settings.QuietHoursEnabled = req.QuietHoursEnabled
	settings.QuietHoursStart = req.QuietHoursStart
	settings.QuietHoursEnd = req.QuietHoursEnd
	settings.WorkingDays = req.WorkingDays
	if err := utils.ValidateSettings(settings); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid settings", err)
	}

	if err := nc.store.SaveSettings(settings); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save settings", err)
	}
	return c.JSON(utils.SuccessResponse(settings))
}
