package gmail

import (
	"context"
	"fmt"
	"time"

	"teuggahunter-service/internal/domain/entity"
	"teuggahunter-service/pkg/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailService handles interaction with the Gmail API
type GmailService struct {
	gmailService *gmail.Service
	logger       logger.Logger
}

// NewGmailService creates a new Gmail service
func NewGmailService(ctx context.Context, tokenSource oauth2.TokenSource, logger logger.Logger) (*GmailService, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &GmailService{
		gmailService: service,
		logger:       logger,
	}, nil
}

// ListUserLabels returns the names of user-created labels. Each label maps
// to one deal source.
func (s *GmailService) ListUserLabels(ctx context.Context) ([]string, error) {
	resp, err := s.gmailService.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	var labels []string
	for _, label := range resp.Labels {
		if label.LabelListVisibility == "labelShow" {
			labels = append(labels, label.Name)
		}
	}

	s.logger.Info("User labels listed", "count", len(labels), "labels", labels)
	return labels, nil
}

// LatestMessageByLabel fetches the newest message carrying the given label
// and decodes its plain-text body. Returns nil when the label has no
// messages.
func (s *GmailService) LatestMessageByLabel(ctx context.Context, label string) (*entity.EmailMessage, error) {
	query := fmt.Sprintf("label:%s", label)

	resp, err := s.gmailService.Users.Messages.List("me").Q(query).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for label %s: %w", label, err)
	}

	if len(resp.Messages) == 0 {
		s.logger.Info("No messages found for label", "label", label)
		return nil, nil
	}

	fullMsg, err := s.gmailService.Users.Messages.Get("me", resp.Messages[0].Id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", resp.Messages[0].Id, err)
	}

	return &entity.EmailMessage{
		ID:         fullMsg.Id,
		Label:      label,
		Body:       ExtractBody(fullMsg.Payload),
		ReceivedAt: time.Unix(0, fullMsg.InternalDate*int64(time.Millisecond)),
	}, nil
}
