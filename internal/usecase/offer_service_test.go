package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teuggahunter-service/internal/domain/entity"
	"teuggahunter-service/pkg/logger"
	"teuggahunter-service/pkg/parser"
)

type fakeExtractor struct {
	offers []*entity.Offer
	panics bool
}

func (f *fakeExtractor) Extract(label, body string) []*entity.Offer {
	if f.panics {
		panic("grammar fault")
	}
	return f.offers
}

type fakeOfferRepo struct {
	existing   map[string]struct{}
	existsErr  error
	queries    int
	attempts   map[string]int
	failBefore map[string]int // fail attempts until this count; -1 fails forever
}

func newFakeOfferRepo() *fakeOfferRepo {
	return &fakeOfferRepo{
		existing:   make(map[string]struct{}),
		attempts:   make(map[string]int),
		failBefore: make(map[string]int),
	}
}

func (f *fakeOfferRepo) ExistingKeys(ctx context.Context, hashKeys []string) (map[string]struct{}, error) {
	f.queries++
	if f.existsErr != nil {
		return nil, f.existsErr
	}
	found := make(map[string]struct{})
	for _, key := range hashKeys {
		if _, ok := f.existing[key]; ok {
			found[key] = struct{}{}
		}
	}
	return found, nil
}

func (f *fakeOfferRepo) Insert(ctx context.Context, offer *entity.Offer) error {
	f.attempts[offer.HashKey]++
	threshold := f.failBefore[offer.HashKey]
	if threshold == -1 || f.attempts[offer.HashKey] <= threshold {
		return errors.New("write failed")
	}
	f.existing[offer.HashKey] = struct{}{}
	return nil
}

type fakeNotifier struct {
	batches [][]*entity.Offer
	err     error
}

func (f *fakeNotifier) PushOffers(ctx context.Context, offers []*entity.Offer) error {
	f.batches = append(f.batches, offers)
	return f.err
}

func makeOffers(keys ...string) []*entity.Offer {
	offers := make([]*entity.Offer, len(keys))
	for i, key := range keys {
		offers[i] = &entity.Offer{
			Source:  "googleflights",
			Origin:  "ICN",
			Airline: fmt.Sprintf("airline-%d", i),
			HashKey: key,
		}
	}
	return offers
}

func newTestService(extractor Extractor, repo *fakeOfferRepo, notifier *fakeNotifier) *OfferService {
	return NewOfferService(extractor, repo, nil, notifier, nil, nil, nil, logger.NewNopLogger())
}

func TestProcessEmailBody_Success(t *testing.T) {
	repo := newFakeOfferRepo()
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeExtractor{offers: makeOffers("k1", "k2")}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "body")

	assert.Equal(t, entity.StatusSuccess, result.Status)
	assert.Len(t, result.Data.ParsedOffers, 2)
	assert.Len(t, result.Data.NewOffers, 2)
	require.Len(t, notifier.batches, 1)
	assert.Len(t, notifier.batches[0], 2)
}

func TestProcessEmailBody_NoOffersIsWarningWithoutStoreQuery(t *testing.T) {
	repo := newFakeOfferRepo()
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeExtractor{}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "nothing here")

	assert.Equal(t, entity.StatusWarning, result.Status)
	assert.Zero(t, repo.queries)
	assert.Empty(t, notifier.batches)
}

func TestProcessEmailBody_AllKnownIsInfo(t *testing.T) {
	repo := newFakeOfferRepo()
	repo.existing["k1"] = struct{}{}
	repo.existing["k2"] = struct{}{}
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeExtractor{offers: makeOffers("k1", "k2")}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "body")

	assert.Equal(t, entity.StatusInfo, result.Status)
	assert.Len(t, result.Data.ParsedOffers, 2)
	assert.Empty(t, result.Data.NewOffers)
	assert.Empty(t, notifier.batches)
	assert.Empty(t, repo.attempts)
}

func TestProcessEmailBody_DedupPreservesOrder(t *testing.T) {
	repo := newFakeOfferRepo()
	repo.existing["k2"] = struct{}{}
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeExtractor{offers: makeOffers("k1", "k2", "k3", "k4")}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "body")

	require.Len(t, result.Data.NewOffers, 3)
	assert.Equal(t, "k1", result.Data.NewOffers[0].HashKey)
	assert.Equal(t, "k3", result.Data.NewOffers[1].HashKey)
	assert.Equal(t, "k4", result.Data.NewOffers[2].HashKey)
	assert.Equal(t, 1, repo.queries)
}

func TestProcessEmailBody_InsertRetriesUntilSuccess(t *testing.T) {
	repo := newFakeOfferRepo()
	repo.failBefore["k1"] = 4 // fails 4 times, succeeds on the 5th
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeExtractor{offers: makeOffers("k1")}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "body")

	assert.Equal(t, entity.StatusSuccess, result.Status)
	assert.Equal(t, 5, repo.attempts["k1"])
	assert.Len(t, result.Data.NewOffers, 1)
	assert.Empty(t, result.Data.FailedKeys)
}

func TestProcessEmailBody_ExhaustedRetriesDoNotAbortBatch(t *testing.T) {
	repo := newFakeOfferRepo()
	repo.failBefore["k1"] = -1
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeExtractor{offers: makeOffers("k1", "k2")}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "body")

	assert.Equal(t, entity.StatusSuccess, result.Status)
	assert.Equal(t, 5, repo.attempts["k1"])
	require.Len(t, result.Data.NewOffers, 1)
	assert.Equal(t, "k2", result.Data.NewOffers[0].HashKey)
	assert.Equal(t, []string{"k1"}, result.Data.FailedKeys)

	// Only the persisted record reaches the hook
	require.Len(t, notifier.batches, 1)
	assert.Len(t, notifier.batches[0], 1)
}

func TestProcessEmailBody_NothingPersistedIsError(t *testing.T) {
	repo := newFakeOfferRepo()
	repo.failBefore["k1"] = -1
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeExtractor{offers: makeOffers("k1")}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "body")

	assert.Equal(t, entity.StatusError, result.Status)
	assert.Empty(t, result.Data.NewOffers)
	assert.Empty(t, notifier.batches)
}

func TestProcessEmailBody_NotifierFailureDoesNotChangeOutcome(t *testing.T) {
	repo := newFakeOfferRepo()
	notifier := &fakeNotifier{err: errors.New("hook unreachable")}
	svc := newTestService(&fakeExtractor{offers: makeOffers("k1")}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "body")

	assert.Equal(t, entity.StatusSuccess, result.Status)
	assert.Len(t, result.Data.NewOffers, 1)
}

func TestProcessEmailBody_ExtractionFaultIsErrorWithNoSideEffects(t *testing.T) {
	repo := newFakeOfferRepo()
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeExtractor{panics: true}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "body")

	assert.Equal(t, entity.StatusError, result.Status)
	assert.Contains(t, result.Message, "grammar fault")
	assert.Zero(t, repo.queries)
	assert.Empty(t, repo.attempts)
	assert.Empty(t, notifier.batches)

	// Error payloads carry empty arrays, not nulls
	assert.NotNil(t, result.Data.ParsedOffers)
	assert.NotNil(t, result.Data.NewOffers)

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "null")
}

func TestProcessEmailBody_DedupFailureIsError(t *testing.T) {
	repo := newFakeOfferRepo()
	repo.existsErr = errors.New("store down")
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeExtractor{offers: makeOffers("k1")}, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "googleflights", "body")

	assert.Equal(t, entity.StatusError, result.Status)
	assert.Empty(t, repo.attempts)
	assert.NotNil(t, result.Data.ParsedOffers)
	assert.NotNil(t, result.Data.NewOffers)
}

// End-to-end through the real extraction engine: decoded body in, persisted
// offer out.
func TestProcessEmailBody_WithRealEngine(t *testing.T) {
	repo := newFakeOfferRepo()
	notifier := &fakeNotifier{}
	engine := parser.NewEngine(logger.NewNopLogger())
	svc := newTestService(engine, repo, notifier)

	body := "11월 10일 (일) - 11월 15일 (금)\n" +
		"최저가: ₩450,000\n" +
		"대한항공·직항·ICN–LAX\n" +
		"https://www.google.com/travel/flights?tfs=CBwQAhoe\n"

	result := svc.ProcessEmailBody(context.Background(), "googleflights", body)

	assert.Equal(t, entity.StatusSuccess, result.Status)
	require.Len(t, result.Data.NewOffers, 1)

	offer := result.Data.NewOffers[0]
	assert.Equal(t, "ICN", offer.Origin)
	assert.Equal(t, "LAX", offer.Destination)
	assert.Equal(t, 450000, offer.Price)
	assert.True(t, offer.Direct)
	assert.NotEmpty(t, offer.Link)
	assert.NotEmpty(t, offer.HashKey)

	// Replaying the same email dedups everything
	replay := svc.ProcessEmailBody(context.Background(), "googleflights", body)
	assert.Equal(t, entity.StatusInfo, replay.Status)
	assert.Empty(t, replay.Data.NewOffers)
}

func TestProcessEmailBody_UnknownLabelIsWarning(t *testing.T) {
	repo := newFakeOfferRepo()
	notifier := &fakeNotifier{}
	engine := parser.NewEngine(logger.NewNopLogger())
	svc := newTestService(engine, repo, notifier)

	result := svc.ProcessEmailBody(context.Background(), "mystery", "some body")

	assert.Equal(t, entity.StatusWarning, result.Status)
}
