package utils

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mailpilot/config"
	"mailpilot/models"
)

// GenerateRateLimitKey creates a unique key for rate limiting
func GenerateRateLimitKey(source, path string) string {
	return fmt.Sprintf("rl:%s:%s", source, path)
}

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}

// ErrorResponse creates a standardized error response
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// ResolveSenderCategory maps a sender address to its organizational
// category using the directory lists from configuration. Unknown senders
// resolve to external, the conservative default.
func ResolveSenderCategory(from string) string {
	addr := strings.ToLower(strings.TrimSpace(from))
	if addr == "" {
		return models.SenderExternal
	}

	for _, allowed := range config.AppConfig.AllowlistAddresses {
		if strings.EqualFold(addr, allowed) {
			return models.SenderAllowlist
		}
	}

	isLeader := false
	for _, leader := range config.AppConfig.LeaderAddresses {
		if strings.EqualFold(addr, leader) {
			isLeader = true
			break
		}
	}

	domain := ""
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		domain = addr[at+1:]
	}

	if domain != "" && strings.EqualFold(domain, config.AppConfig.InternalDomain) {
		if isLeader {
			return models.SenderInternalLeader
		}
		return models.SenderInternalStaff
	}

	for _, peer := range config.AppConfig.PeerDomains {
		if strings.EqualFold(domain, peer) {
			if isLeader {
				return models.SenderPeerLeader
			}
			return models.SenderPeerStaff
		}
	}

	if isLeader {
		return models.SenderCrossOrgLeader
	}
	return models.SenderExternal
}
