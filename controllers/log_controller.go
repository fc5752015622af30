package controller

import (
	"log"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"mailpilot/models"
	"mailpilot/store"
	"mailpilot/utils"
)

type LogController struct {
	store  *store.Store
	logger *log.Logger

	mu      sync.Mutex
	streams map[*websocket.Conn]chan *models.ProcessingLogEntry
}

func NewLogController(st *store.Store, logger *log.Logger) *LogController {
	return &LogController{
		store:   st,
		logger:  logger,
		streams: make(map[*websocket.Conn]chan *models.ProcessingLogEntry),
	}
}

// ListLogs returns processing log entries, newest first.
func (lc *LogController) ListLogs(c *fiber.Ctx) error {
	filter := store.LogFilter{
		Kind:    c.Query("kind"),
		Outcome: c.Query("outcome"),
		Limit:   c.QueryInt("limit"),
	}
	if v := c.Query("email_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email_id", err)
		}
		filter.EmailID = uint(id)
	}
	if v := c.Query("rule_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule_id", err)
		}
		filter.RuleID = uint(id)
	}

	entries, err := lc.store.QueryLogs(filter)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch log entries", err)
	}
	return c.JSON(utils.SuccessResponse(entries))
}

// Publish fans a freshly appended entry out to connected stream clients.
// Slow clients are skipped rather than blocking the dispatcher.
func (lc *LogController) Publish(entry *models.ProcessingLogEntry) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	for _, ch := range lc.streams {
		select {
		case ch <- entry:
		default:
		}
	}
}

// HandleLogStreamWS pushes each new processing log entry to the client as
// it is appended.
func (lc *LogController) HandleLogStreamWS(c *websocket.Conn) {
	defer c.Close()

	ch := make(chan *models.ProcessingLogEntry, 64)
	lc.mu.Lock()
	lc.streams[c] = ch
	lc.mu.Unlock()

	defer func() {
		lc.mu.Lock()
		delete(lc.streams, c)
		lc.mu.Unlock()
	}()

	// Drain the read side so close frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entry := <-ch:
			if err := c.WriteJSON(entry); err != nil {
				lc.logger.Printf("Error writing log entry to stream: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
