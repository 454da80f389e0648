package usecase

import (
	"context"
	"fmt"
	"time"

	"teuggahunter-service/internal/domain/entity"
	"teuggahunter-service/internal/domain/repository"
	"teuggahunter-service/pkg/logger"
	"teuggahunter-service/pkg/metrics"
)

// maxInsertAttempts bounds per-record persistence retries. Retries are
// immediate, with no backoff.
const maxInsertAttempts = 5

// Extractor turns a decoded email body into offer records. Satisfied by
// parser.Engine.
type Extractor interface {
	Extract(label, body string) []*entity.Offer
}

// OfferService sequences extraction, dedup, persistence and notification
// for inbound deal emails.
type OfferService struct {
	engine      Extractor
	offerRepo   repository.OfferRepository
	airlineRepo repository.AirlineRepository
	notifier    repository.DealNotifier
	mailbox     repository.MailboxRepository
	offsetRepo  repository.OffsetRepository
	metrics     *metrics.Metrics
	logger      logger.Logger
}

// NewOfferService creates a new offer service. airlineRepo, mailbox and
// offsetRepo may be nil when the corresponding collaborator is not
// configured; push-mode processing works without them.
func NewOfferService(
	engine Extractor,
	offerRepo repository.OfferRepository,
	airlineRepo repository.AirlineRepository,
	notifier repository.DealNotifier,
	mailbox repository.MailboxRepository,
	offsetRepo repository.OffsetRepository,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *OfferService {
	return &OfferService{
		engine:      engine,
		offerRepo:   offerRepo,
		airlineRepo: airlineRepo,
		notifier:    notifier,
		mailbox:     mailbox,
		offsetRepo:  offsetRepo,
		metrics:     metrics,
		logger:      logger,
	}
}

// ProcessEmailBody runs the full pipeline on one decoded email body.
// It always returns a structured result; failures surface as an "error"
// status, never as a propagated error or panic.
func (s *OfferService) ProcessEmailBody(ctx context.Context, label, body string) *entity.ProcessResult {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ProcessingTime.Observe(time.Since(started).Seconds())
			s.metrics.EmailsProcessed.Inc()
		}
	}()

	s.logger.Info("Processing email", "label", label, "bodyLength", len(body))

	parsed, err := s.extractOffers(label, body)
	if err != nil {
		s.countError("parse")
		return &entity.ProcessResult{
			Status:  entity.StatusError,
			Message: fmt.Sprintf("Failed to parse email with label %s: %v", label, err),
			Data:    entity.ProcessData{ParsedOffers: []*entity.Offer{}, NewOffers: []*entity.Offer{}},
		}
	}

	if s.metrics != nil {
		s.metrics.OffersExtracted.Add(float64(len(parsed)))
	}

	if len(parsed) == 0 {
		return &entity.ProcessResult{
			Status:  entity.StatusWarning,
			Message: fmt.Sprintf("No flight information found in email with label: %s", label),
			Data:    entity.ProcessData{ParsedOffers: []*entity.Offer{}, NewOffers: []*entity.Offer{}},
		}
	}

	newOffers, err := s.filterNew(ctx, parsed)
	if err != nil {
		s.countError("dedup")
		return &entity.ProcessResult{
			Status:  entity.StatusError,
			Message: fmt.Sprintf("Failed to check existing offers for label %s: %v", label, err),
			Data:    entity.ProcessData{ParsedOffers: parsed, NewOffers: []*entity.Offer{}},
		}
	}

	if len(newOffers) == 0 {
		return &entity.ProcessResult{
			Status:  entity.StatusInfo,
			Message: fmt.Sprintf("All flights from email with label: %s already exist in database", label),
			Data:    entity.ProcessData{ParsedOffers: parsed, NewOffers: []*entity.Offer{}},
		}
	}

	saved, failedKeys := s.persistOffers(ctx, newOffers)

	if len(saved) == 0 {
		s.countError("persist")
		return &entity.ProcessResult{
			Status:  entity.StatusError,
			Message: fmt.Sprintf("Failed to save new flights to database for label: %s", label),
			Data:    entity.ProcessData{ParsedOffers: parsed, NewOffers: []*entity.Offer{}, FailedKeys: failedKeys},
		}
	}

	// Best-effort: a failed push never changes the outcome.
	if err := s.notifier.PushOffers(ctx, saved); err != nil {
		s.countError("notify")
		s.logger.Error("Failed to push offers to hook", "error", err, "count", len(saved))
	} else if s.metrics != nil {
		s.metrics.NotificationsSent.Inc()
	}

	return &entity.ProcessResult{
		Status:  entity.StatusSuccess,
		Message: fmt.Sprintf("Successfully saved %d new flights from email with label: %s", len(saved), label),
		Data:    entity.ProcessData{ParsedOffers: parsed, NewOffers: saved, FailedKeys: failedKeys},
	}
}

// extractOffers isolates the extraction engine behind a panic guard so an
// unexpected grammar fault becomes a terminal error outcome for the email
// with no side effects.
func (s *OfferService) extractOffers(label, body string) (offers []*entity.Offer, err error) {
	defer func() {
		if r := recover(); r != nil {
			offers = nil
			err = fmt.Errorf("extraction fault: %v", r)
		}
	}()

	return s.engine.Extract(label, body), nil
}

// filterNew drops candidates whose hash key is already stored. The
// existence check is one batched query; relative order is preserved.
func (s *OfferService) filterNew(ctx context.Context, candidates []*entity.Offer) ([]*entity.Offer, error) {
	keys := make([]string, len(candidates))
	for i, offer := range candidates {
		keys[i] = offer.HashKey
	}

	existing, err := s.offerRepo.ExistingKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	var fresh []*entity.Offer
	for _, offer := range candidates {
		if _, seen := existing[offer.HashKey]; !seen {
			fresh = append(fresh, offer)
		}
	}

	s.logger.Info("Dedup filter applied",
		"candidates", len(candidates),
		"alreadyKnown", len(candidates)-len(fresh),
		"new", len(fresh))

	return fresh, nil
}

// persistOffers inserts each offer with bounded immediate retries. A record
// that exhausts its attempts lands in the failed list without aborting the
// rest of the batch.
func (s *OfferService) persistOffers(ctx context.Context, offers []*entity.Offer) (saved []*entity.Offer, failedKeys []string) {
	for _, offer := range offers {
		s.enrichAirline(ctx, offer)

		var lastErr error
		inserted := false
		for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
			if lastErr = s.offerRepo.Insert(ctx, offer); lastErr == nil {
				inserted = true
				break
			}
			s.logger.Warn("Offer insert failed",
				"hashKey", offer.HashKey,
				"attempt", attempt,
				"error", lastErr)
		}

		if inserted {
			saved = append(saved, offer)
			if s.metrics != nil {
				s.metrics.OffersPersisted.Inc()
			}
		} else {
			s.logger.Error("Offer insert exhausted retries",
				"hashKey", offer.HashKey,
				"error", lastErr)
			failedKeys = append(failedKeys, offer.HashKey)
		}
	}

	return saved, failedKeys
}

func (s *OfferService) countError(operation string) {
	if s.metrics != nil {
		s.metrics.ErrorsCount.WithLabelValues(operation).Inc()
	}
}

// enrichAirline resolves the parsed airline name to a canonical code.
// Lookup misses degrade silently to the raw name.
func (s *OfferService) enrichAirline(ctx context.Context, offer *entity.Offer) {
	if s.airlineRepo == nil {
		return
	}

	airline, err := s.airlineRepo.GetByName(ctx, offer.Airline)
	if err != nil {
		s.logger.Debug("Airline lookup miss", "airline", offer.Airline)
		return
	}

	offer.AirlineCode = airline.Code
}
