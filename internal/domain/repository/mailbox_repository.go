package repository

import (
	"context"

	"teuggahunter-service/internal/domain/entity"
)

// MailboxRepository defines the interface for the mailbox collaborator used
// in pull mode. Only the newest message per label is ever requested.
type MailboxRepository interface {
	ListUserLabels(ctx context.Context) ([]string, error)
	LatestMessageByLabel(ctx context.Context, label string) (*entity.EmailMessage, error)
}
