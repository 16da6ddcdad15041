package ports

import (
	"context"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
)

type EventPublisher interface {
	Publish(ctx context.Context, record *entity.Outbox) error
}
