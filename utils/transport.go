package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"gopkg.in/gomail.v2"

	"mailpilot/config"
	"mailpilot/models"
)

// MailTransport is the outbound side of the engine: SMTP for forwards and
// email-method notifications, plus HTTP webhooks for the calendar service
// and the desktop notification agent. It implements engine.Transport.
// Timeouts live here; the dispatcher and notifier only record outcomes.
type MailTransport struct {
	logger     *log.Logger
	httpClient *fasthttp.Client
}

func NewMailTransport(logger *log.Logger) *MailTransport {
	return &MailTransport{
		logger: logger,
		httpClient: &fasthttp.Client{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Send forwards an email to the action's target address.
func (t *MailTransport) Send(action models.RuleAction, email *models.Email) error {
	if err := ValidateEmailAddress(action.Target); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", config.AppConfig.FromEmail)
	m.SetHeader("To", action.Target)
	m.SetHeader("Subject", "FW: "+email.Subject)
	m.SetBody("text/plain", fmt.Sprintf("Forwarded message from %s\r\n\r\n%s", email.From, email.Body))

	if err := t.dialAndSend(m); err != nil {
		return fmt.Errorf("forward to %s failed: %w", action.Target, err)
	}

	t.logger.Printf("Forwarded email %d to %s", email.ID, action.Target)
	return nil
}

// RegisterMeeting posts the meeting registration to the calendar
// collaborator's webhook.
func (t *MailTransport) RegisterMeeting(calendarRef string, email *models.Email) error {
	if config.AppConfig.CalendarWebhookURL == "" {
		return fmt.Errorf("calendar webhook is not configured")
	}

	body, err := json.Marshal(map[string]interface{}{
		"calendar_ref": calendarRef,
		"email_id":     email.ID,
		"message_id":   email.MessageID,
		"subject":      email.Subject,
		"from":         email.From,
		"arrived_at":   email.ArrivedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode meeting registration: %w", err)
	}

	return t.postJSON(config.AppConfig.CalendarWebhookURL, body)
}

// Deliver hands one notification to its delivery channel. Email goes out
// over SMTP; desktop and sound go to the local notification agent, which
// owns the actual popup/sound playback.
func (t *MailTransport) Deliver(method string, payload models.NotificationPayload) error {
	switch method {
	case models.MethodEmail:
		recipient := config.AppConfig.NotifyEmail
		if err := ValidateEmailAddress(recipient); err != nil {
			return fmt.Errorf("notification recipient not configured: %w", err)
		}
		m := gomail.NewMessage()
		m.SetHeader("From", config.AppConfig.FromEmail)
		m.SetHeader("To", recipient)
		m.SetHeader("Subject", payload.Title)
		m.SetBody("text/plain", payload.Body)
		return t.dialAndSend(m)

	case models.MethodDesktop, models.MethodSound:
		if config.AppConfig.NotifyAgentURL == "" {
			return fmt.Errorf("notification agent is not configured")
		}
		body, err := json.Marshal(map[string]interface{}{
			"method":  method,
			"payload": payload,
		})
		if err != nil {
			return fmt.Errorf("failed to encode notification: %w", err)
		}
		return t.postJSON(config.AppConfig.NotifyAgentURL, body)
	}

	return fmt.Errorf("unknown delivery method %q", method)
}

func (t *MailTransport) dialAndSend(m *gomail.Message) error {
	port, err := strconv.Atoi(config.AppConfig.SMTPPort)
	if err != nil {
		port = 587
	}
	d := gomail.NewDialer(
		config.AppConfig.SMTPHost,
		port,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)
	return d.DialAndSend(m)
}

func (t *MailTransport) postJSON(url string, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := t.httpClient.DoTimeout(req, resp, 10*time.Second); err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("request to %s returned status %d", url, resp.StatusCode())
	}
	return nil
}
