package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"teuggahunter-service/internal/domain/entity"
	"teuggahunter-service/internal/domain/repository"
	"teuggahunter-service/pkg/logger"
)

// HookNotifier pushes persisted offer batches to the downstream automation
// hook over HTTP, authenticated with a static key header.
type HookNotifier struct {
	logger   logger.Logger
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHookNotifier creates a new hook notifier
func NewHookNotifier(logger logger.Logger, endpoint, apiKey string) repository.DealNotifier {
	return &HookNotifier{
		logger:   logger,
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// PushOffers sends the whole batch as one request. There is no response
// contract beyond the status code; callers treat failures as log-only.
func (n *HookNotifier) PushOffers(ctx context.Context, offers []*entity.Offer) error {
	if len(offers) == 0 {
		return nil
	}

	jsonData, err := json.Marshal(offers)
	if err != nil {
		return fmt.Errorf("failed to marshal offers: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification hook returned status %d", resp.StatusCode)
	}

	n.logger.Info("Offer batch pushed to hook",
		"count", len(offers),
		"status", resp.StatusCode)

	return nil
}
