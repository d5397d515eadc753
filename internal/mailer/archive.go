package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"eventhub/internal/storage"
)

type ArchiveConfig struct {
	Bucket    string
	KeyPrefix string
	Now       func() time.Time
}

// ArchiveSender stores each rendered message as a JSON object instead of
// delivering it, for staging environments and audits.
type ArchiveSender struct {
	store storage.Service
	cfg   ArchiveConfig
}

type archivedEmail struct {
	Email
	ArchivedAt time.Time `json:"archived_at"`
}

func NewArchiveSender(store storage.Service, cfg ArchiveConfig) (*ArchiveSender, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: object storage is required", ErrInvalidConfig)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: archive bucket is required", ErrInvalidConfig)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ArchiveSender{store: store, cfg: cfg}, nil
}

func (s *ArchiveSender) SendEmail(ctx context.Context, email Email) error {
	if err := email.Validate(); err != nil {
		return err
	}

	now := s.cfg.Now().UTC()
	body, err := json.Marshal(archivedEmail{Email: email, ArchivedAt: now})
	if err != nil {
		return fmt.Errorf("encode archived email: %w", err)
	}

	tag := email.Tag
	if tag == "" {
		tag = "email"
	}
	key := path.Join(
		s.cfg.KeyPrefix,
		now.Format("2006/01/02"),
		fmt.Sprintf("%s_%s_%s.json", now.Format("150405"), tag, uuid.NewString()),
	)

	if _, err := s.store.PutObject(ctx, body, storage.PutOptions{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		ContentType: "application/json",
	}); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

var _ Sender = (*ArchiveSender)(nil)
