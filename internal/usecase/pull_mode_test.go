package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teuggahunter-service/internal/domain/entity"
	"teuggahunter-service/pkg/logger"
)

type fakeMailbox struct {
	labels    []string
	labelsErr error
	messages  map[string]*entity.EmailMessage
	msgErrs   map[string]error
	fetched   []string
}

func (f *fakeMailbox) ListUserLabels(ctx context.Context) ([]string, error) {
	return f.labels, f.labelsErr
}

func (f *fakeMailbox) LatestMessageByLabel(ctx context.Context, label string) (*entity.EmailMessage, error) {
	f.fetched = append(f.fetched, label)
	if err := f.msgErrs[label]; err != nil {
		return nil, err
	}
	return f.messages[label], nil
}

type fakeOffsetRepo struct {
	offsets map[string]int64
	getErr  error
	setErr  error
}

func newFakeOffsetRepo() *fakeOffsetRepo {
	return &fakeOffsetRepo{offsets: make(map[string]int64)}
}

func (f *fakeOffsetRepo) Get(ctx context.Context, label string) (int64, error) {
	if f.getErr != nil {
		return 0, f.getErr
	}
	return f.offsets[label], nil
}

func (f *fakeOffsetRepo) Set(ctx context.Context, label string, unixSeconds int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.offsets[label] = unixSeconds
	return nil
}

func newPullService(mailbox *fakeMailbox, offsets *fakeOffsetRepo, repo *fakeOfferRepo) *OfferService {
	return NewOfferService(
		&fakeExtractor{offers: makeOffers("k1")},
		repo, nil, &fakeNotifier{}, mailbox, offsets, nil,
		logger.NewNopLogger(),
	)
}

func TestProcessLatestEmail_ProcessesAndAdvancesOffset(t *testing.T) {
	received := time.Unix(1700000000, 0)
	mailbox := &fakeMailbox{messages: map[string]*entity.EmailMessage{
		"googleflights": {ID: "m1", Label: "googleflights", Body: "body", ReceivedAt: received},
	}}
	offsets := newFakeOffsetRepo()
	svc := newPullService(mailbox, offsets, newFakeOfferRepo())

	result, err := svc.ProcessLatestEmail(context.Background(), "googleflights")

	require.NoError(t, err)
	assert.Equal(t, entity.StatusSuccess, result.Status)
	assert.Equal(t, received.Unix(), offsets.offsets["googleflights"])
}

func TestProcessLatestEmail_SkipsAlreadySeenMessage(t *testing.T) {
	received := time.Unix(1700000000, 0)
	mailbox := &fakeMailbox{messages: map[string]*entity.EmailMessage{
		"googleflights": {ID: "m1", Label: "googleflights", Body: "body", ReceivedAt: received},
	}}
	offsets := newFakeOffsetRepo()
	offsets.offsets["googleflights"] = received.Unix()
	repo := newFakeOfferRepo()
	svc := newPullService(mailbox, offsets, repo)

	result, err := svc.ProcessLatestEmail(context.Background(), "googleflights")

	require.NoError(t, err)
	assert.Equal(t, entity.StatusInfo, result.Status)
	assert.Zero(t, repo.queries)
}

func TestProcessLatestEmail_NoMessagesIsWarning(t *testing.T) {
	mailbox := &fakeMailbox{}
	svc := newPullService(mailbox, newFakeOffsetRepo(), newFakeOfferRepo())

	result, err := svc.ProcessLatestEmail(context.Background(), "googleflights")

	require.NoError(t, err)
	assert.Equal(t, entity.StatusWarning, result.Status)
}

func TestProcessLatestEmail_OffsetReadFailureStillProcesses(t *testing.T) {
	received := time.Unix(1700000000, 0)
	mailbox := &fakeMailbox{messages: map[string]*entity.EmailMessage{
		"googleflights": {ID: "m1", Label: "googleflights", Body: "body", ReceivedAt: received},
	}}
	offsets := newFakeOffsetRepo()
	offsets.getErr = errors.New("offset file corrupt")
	svc := newPullService(mailbox, offsets, newFakeOfferRepo())

	result, err := svc.ProcessLatestEmail(context.Background(), "googleflights")

	require.NoError(t, err)
	assert.Equal(t, entity.StatusSuccess, result.Status)
}

func TestProcessLatestEmail_NoMailboxConfigured(t *testing.T) {
	svc := NewOfferService(
		&fakeExtractor{}, newFakeOfferRepo(), nil, &fakeNotifier{}, nil, nil, nil,
		logger.NewNopLogger(),
	)

	_, err := svc.ProcessLatestEmail(context.Background(), "googleflights")

	assert.Error(t, err)
}

func TestProcessAllLabels_SkipsFailingLabel(t *testing.T) {
	received := time.Unix(1700000000, 0)
	mailbox := &fakeMailbox{
		labels: []string{"googleflights", "broken", "secretflying"},
		messages: map[string]*entity.EmailMessage{
			"googleflights": {ID: "m1", Label: "googleflights", Body: "body", ReceivedAt: received},
			"secretflying":  {ID: "m2", Label: "secretflying", Body: "body", ReceivedAt: received},
		},
		msgErrs: map[string]error{"broken": errors.New("mailbox timeout")},
	}
	svc := newPullService(mailbox, newFakeOffsetRepo(), newFakeOfferRepo())

	results := svc.ProcessAllLabels(context.Background())

	assert.Len(t, results, 2)
	assert.Equal(t, []string{"googleflights", "broken", "secretflying"}, mailbox.fetched)
}

func TestProcessAllLabels_ListFailureReturnsNil(t *testing.T) {
	mailbox := &fakeMailbox{labelsErr: errors.New("auth expired")}
	svc := newPullService(mailbox, newFakeOffsetRepo(), newFakeOfferRepo())

	assert.Nil(t, svc.ProcessAllLabels(context.Background()))
	assert.Empty(t, mailbox.fetched)
}
