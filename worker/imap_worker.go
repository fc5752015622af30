package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"mailpilot/config"
	"mailpilot/engine"
	"mailpilot/models"
	"mailpilot/store"
	"mailpilot/utils"
)

// IntakeStore is the persistence the IMAP poller needs.
type IntakeStore interface {
	CreateEmail(email *models.Email) error
	GetEmailByMessageID(messageID string) (*models.Email, error)
}

// IMAPWorker is the in-process email source collaborator: it polls a
// mailbox, turns new messages into engine emails and feeds them through
// the rule engine. External sources use the intake endpoint instead.
type IMAPWorker struct {
	store  IntakeStore
	engine *engine.Engine
	logger *log.Logger
}

func NewIMAPWorker(store IntakeStore, eng *engine.Engine, logger *log.Logger) *IMAPWorker {
	return &IMAPWorker{
		store:  store,
		engine: eng,
		logger: logger,
	}
}

func (iw *IMAPWorker) Start(ctx context.Context) {
	iw.logger.Println("IMAP intake worker started")

	ticker := time.NewTicker(config.AppConfig.IMAP.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			iw.logger.Println("IMAP intake worker shutting down...")
			return
		case <-ticker.C:
			if err := iw.fetchNewMessages(); err != nil {
				iw.logger.Printf("IMAP fetch failed: %v", err)
			}
		}
	}
}

func (iw *IMAPWorker) fetchNewMessages() error {
	cfg := config.AppConfig.IMAP

	var imapClient *client.Client
	var err error
	imapAddr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	switch strings.ToUpper(cfg.Encryption) {
	case "SSL", "TLS":
		imapClient, err = client.DialTLS(imapAddr, &tls.Config{
			ServerName: cfg.Host,
		})
	case "STARTTLS":
		imapClient, err = client.Dial(imapAddr)
		if err == nil {
			err = imapClient.StartTLS(&tls.Config{
				ServerName: cfg.Host,
			})
		}
	default:
		imapClient, err = client.Dial(imapAddr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %v", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %v", err)
	}

	if _, err := imapClient.Select(cfg.Mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %v", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchRFC822Size, section.FetchItem()}, messages)
	}()

	for msg := range messages {
		if err := iw.processIMAPMessage(msg, section); err != nil {
			iw.logger.Printf("Failed to process message %d: %v", msg.SeqNum, err)
			continue
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %v", err)
	}

	return nil
}

func (iw *IMAPWorker) processIMAPMessage(msg *imap.Message, section *imap.BodySectionName) error {
	if msg.Envelope == nil {
		return fmt.Errorf("message has no envelope")
	}

	// Already ingested on a previous poll
	if _, err := iw.store.GetEmailByMessageID(msg.Envelope.MessageId); err == nil {
		return nil
	} else if err != store.ErrNotFound {
		return fmt.Errorf("failed to check message %s: %v", msg.Envelope.MessageId, err)
	}

	var bodyText string
	attachmentCount := 0

	if msg.Body != nil {
		literal := msg.GetBody(section)
		if literal == nil {
			return fmt.Errorf("message body not found")
		}

		mr, err := mail.CreateReader(literal)
		if err != nil {
			return fmt.Errorf("failed to create message reader: %v", err)
		}

		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			} else if err != nil {
				return fmt.Errorf("failed to read next part: %v", err)
			}

			switch h := p.Header.(type) {
			case *mail.InlineHeader:
				contentType, _, _ := h.ContentType()
				if strings.Contains(contentType, "text/plain") {
					b, err := io.ReadAll(p.Body)
					if err != nil {
						return fmt.Errorf("failed to read body: %v", err)
					}
					bodyText = string(b)
				}
			case *mail.AttachmentHeader:
				attachmentCount++
			}
		}
	}

	from := formatAddress(msg.Envelope.From)
	email := models.Email{
		MessageID:       msg.Envelope.MessageId,
		From:            from,
		SenderCategory:  utils.ResolveSenderCategory(from),
		Recipients:      formatAddresses(msg.Envelope.To),
		Subject:         msg.Envelope.Subject,
		Body:            bodyText,
		AttachmentCount: attachmentCount,
		Size:            int64(msg.Size),
		ArrivedAt:       msg.Envelope.Date,
	}

	if err := iw.store.CreateEmail(&email); err != nil {
		return fmt.Errorf("failed to save email: %v", err)
	}

	if _, err := iw.engine.ProcessEmail(&email); err != nil {
		return fmt.Errorf("failed to process email %d: %v", email.ID, err)
	}

	return nil
}

func formatAddress(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0].Address()
}

func formatAddresses(addrs []*imap.Address) []string {
	var result []string
	for _, addr := range addrs {
		result = append(result, addr.Address())
	}
	return result
}
