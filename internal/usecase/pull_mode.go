package usecase

import (
	"context"
	"fmt"
	"time"

	"teuggahunter-service/internal/domain/entity"
)

// ProcessLatestEmail fetches the newest message for a label, skips it if
// the stored offset already covers it, and runs the pipeline on its body.
func (s *OfferService) ProcessLatestEmail(ctx context.Context, label string) (*entity.ProcessResult, error) {
	if s.mailbox == nil {
		return nil, fmt.Errorf("mailbox collaborator not configured")
	}

	msg, err := s.mailbox.LatestMessageByLabel(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest message for label %s: %w", label, err)
	}
	if msg == nil {
		return &entity.ProcessResult{
			Status:  entity.StatusWarning,
			Message: fmt.Sprintf("No messages found with label: %s", label),
		}, nil
	}

	receivedAt := msg.ReceivedAt.Unix()

	if s.offsetRepo != nil {
		lastSeen, err := s.offsetRepo.Get(ctx, label)
		if err != nil {
			s.logger.Warn("Failed to read offset, processing anyway", "label", label, "error", err)
		} else if lastSeen >= receivedAt {
			return &entity.ProcessResult{
				Status:  entity.StatusInfo,
				Message: fmt.Sprintf("Latest email for label %s already processed", label),
			}, nil
		}
	}

	result := s.ProcessEmailBody(ctx, label, msg.Body)

	if s.offsetRepo != nil {
		if err := s.offsetRepo.Set(ctx, label, receivedAt); err != nil {
			s.logger.Error("Failed to store offset", "label", label, "error", err)
		}
	}

	return result, nil
}

// ProcessAllLabels sweeps every user label once. One label failing is
// logged and skipped; the sweep continues.
func (s *OfferService) ProcessAllLabels(ctx context.Context) []*entity.ProcessResult {
	if s.mailbox == nil {
		s.logger.Warn("Mailbox collaborator not configured, skipping sweep")
		return nil
	}

	labels, err := s.mailbox.ListUserLabels(ctx)
	if err != nil {
		s.logger.Error("Failed to list labels", "error", err)
		return nil
	}

	var results []*entity.ProcessResult
	for _, label := range labels {
		result, err := s.ProcessLatestEmail(ctx, label)
		if err != nil {
			s.logger.Error("Error processing label", "label", label, "error", err)
			continue
		}
		results = append(results, result)
	}

	return results
}

// StartPolling runs the pull-mode sweep on a fixed interval until the
// context is cancelled. Push mode is primary; this runs only when enabled.
func (s *OfferService) StartPolling(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Deal polling stopped")
			return
		case <-ticker.C:
			s.logger.Info("Polling mailbox for deal emails")
			s.ProcessAllLabels(ctx)
		}
	}
}
