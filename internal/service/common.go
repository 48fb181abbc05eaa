package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/events"
	"github.com/deskforge/helpdesk/internal/repository"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// maxTxAttempts bounds retries of a transaction that lost a version race.
const maxTxAttempts = 3

// storeError maps repository failures onto domain error kinds. Domain errors
// raised inside a transaction callback pass through unchanged.
func storeError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	case errors.Is(err, repository.ErrReferenced):
		return apperrors.NewConflict(resource+" is referenced by other records", nil)
	default:
		return apperrors.NewStorageUnavailable(err)
	}
}

// withRetry runs a transaction, repeating it when a ticket version check
// fails. Exhausted retries surface as StorageUnavailable.
func withRetry(ctx context.Context, store repository.Store, fn func(repository.Repositories) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = store.WithinTx(ctx, fn)
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
	}
	return apperrors.NewStorageUnavailable(err)
}

type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
