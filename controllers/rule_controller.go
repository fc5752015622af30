package controller

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"mailpilot/models"
	"mailpilot/store"
	"mailpilot/utils"
)

type RuleController struct {
	store  *store.Store
	logger *log.Logger
}

func NewRuleController(st *store.Store, logger *log.Logger) *RuleController {
	return &RuleController{
		store:  st,
		logger: logger,
	}
}

type RuleRequest struct {
	Name       string               `json:"name" validate:"required"`
	Conditions models.ConditionList `json:"conditions"`
	Actions    models.ActionList    `json:"actions" validate:"required,min=1"`
	Enabled    *bool                `json:"enabled"`
	Priority   int                  `json:"priority"`
}

func (rc *RuleController) ListRules(c *fiber.Ctx) error {
	rules, err := rc.store.ListRules()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch rules", err)
	}
	return c.JSON(utils.SuccessResponse(rules))
}

func (rc *RuleController) GetRule(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule ID", err)
	}

	rule, err := rc.store.GetRule(uint(id))
	if err == store.ErrNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Rule not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch rule", err)
	}
	return c.JSON(utils.SuccessResponse(rule))
}

func (rc *RuleController) CreateRule(c *fiber.Ctx) error {
	var req RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	rule := models.Rule{
		Name:       req.Name,
		Conditions: req.Conditions,
		Actions:    req.Actions,
		Enabled:    req.Enabled == nil || *req.Enabled,
		Priority:   req.Priority,
	}
	if err := utils.ValidateRule(&rule); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule", err)
	}

	if err := rc.store.CreateRule(&rule); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create rule", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(rule))
}

func (rc *RuleController) UpdateRule(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule ID", err)
	}

	rule, err := rc.store.GetRule(uint(id))
	if err == store.ErrNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Rule not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch rule", err)
	}

	var req RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	rule.Name = req.Name
	rule.Conditions = req.Conditions
	rule.Actions = req.Actions
	rule.Priority = req.Priority
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if err := utils.ValidateRule(rule); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule", err)
	}

	if err := rc.store.UpdateRule(rule); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update rule", err)
	}
	return c.JSON(utils.SuccessResponse(rule))
}

func (rc *RuleController) DeleteRule(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule ID", err)
	}

	if err := rc.store.DeleteRule(uint(id)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete rule", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Rule deleted",
	})
}
