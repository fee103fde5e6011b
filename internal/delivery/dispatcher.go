package delivery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/docflow/apiserver/types"
	"go.uber.org/zap"
)

// Archive stores sent documents as JSON objects.
type Archive interface {
	PutJSON(ctx context.Context, key string, v any, metadata map[string]string) error
}

// Publisher announces sent documents on a channel.
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, v any, attrs map[string]string) (string, error)
}

// SentNotice is the payload published for every sent document.
type SentNotice struct {
	ID       int       `json:"id"`
	Code     int64     `json:"code"`
	Subject  string    `json:"subject"`
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	SentAt   time.Time `json:"sent_at"`
}

// ArchiveKey returns the object key a document is archived under.
func ArchiveKey(code int64) string {
	return "documents/" + strconv.FormatInt(code, 10) + ".json"
}

// Dispatcher archives and announces documents after they are sent.
// Either side may be nil, in which case that step is skipped.
type Dispatcher struct {
	archive   Archive
	publisher Publisher
	channel   string
	logger    *zap.Logger
}

func NewDispatcher(archive Archive, publisher Publisher, channel string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		archive:   archive,
		publisher: publisher,
		channel:   channel,
		logger:    logger,
	}
}

// Enabled reports whether any delivery step is configured.
func (d *Dispatcher) Enabled() bool {
	return d.archive != nil || d.publisher != nil
}

// Deliver runs both steps regardless of individual failures and returns the
// joined errors.
func (d *Dispatcher) Deliver(ctx context.Context, document types.Document) error {
	metadata := map[string]string{
		"document_id": strconv.Itoa(document.ID),
		"code":        strconv.FormatInt(document.Code, 10),
	}

	var errs []error
	if d.archive != nil {
		key := ArchiveKey(document.Code)
		if err := d.archive.PutJSON(ctx, key, document, metadata); err != nil {
			errs = append(errs, fmt.Errorf("archive %s: %w", key, err))
		}
	}

	if d.publisher != nil {
		notice := SentNotice{
			ID:       document.ID,
			Code:     document.Code,
			Subject:  document.Subject,
			Sender:   document.Sender,
			Receiver: document.Receiver,
			SentAt:   document.UpdatedAt,
		}
		messageID, err := d.publisher.PublishJSON(ctx, d.channel, notice, metadata)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", d.channel, err))
		} else {
			d.logger.Debug("sent notice published",
				zap.String("channel", d.channel),
				zap.String("message_id", messageID),
				zap.Int("document_id", document.ID),
			)
		}
	}

	return errors.Join(errs...)
}
