package integration_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/deadletter"
)

type mockEventRepository struct {
	mock.Mock
}

func (m *mockEventRepository) Create(ctx context.Context, event *integration.WebhookEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepository) Finish(ctx context.Context, event *integration.WebhookEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.WebhookEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.WebhookEvent), args.Error(1)
}

func (m *mockEventRepository) CountByEventKey(ctx context.Context, marketplace integration.MarketplaceCode, eventKey string) (int64, error) {
	args := m.Called(ctx, marketplace, eventKey)
	return args.Get(0).(int64), args.Error(1)
}

func TestReplayService_RequeuesWhenEventCannotBeLoaded(t *testing.T) {
	ctx := context.Background()
	queue := deadletter.NewInMemoryQueue()
	letter := deadletter.DeadLetter{
		WebhookEventID: uuid.New(),
		Marketplace:    "hepsiburada",
		EventType:      string(integration.EventPaymentReceived),
		EventKey:       "pay-9",
		RawPayload:     []byte(`{"eventType":"PAYMENT_RECEIVED","data":{}}`),
		Error:          "ledger unavailable",
		Attempts:       2,
	}
	require.NoError(t, queue.Push(ctx, letter))

	events := new(mockEventRepository)
	events.On("FindByID", mock.Anything, letter.WebhookEventID).Return(nil, errors.New("db down"))

	report, err := appintegration.NewReplayService(queue, events, nil, nil).Replay(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, appintegration.ReplayReport{Popped: 1, Requeued: 1}, report)

	n, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	requeued, err := queue.Pop(ctx, 1)
	require.NoError(t, err)
	require.Len(t, requeued, 1)
	assert.Equal(t, letter.WebhookEventID, requeued[0].WebhookEventID)
	assert.Equal(t, 2, requeued[0].Attempts)
	events.AssertExpectations(t)
}

func TestReplayService_RequeuesWhenReplayFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	handler := &flakyHandler{}
	f.router.Register(integration.MarketplaceHepsiburada, integration.EventPaymentReceived, handler)

	f.deliver(t, `{"eventType":"PAYMENT_RECEIVED","webhookId":"pay-3","data":{"orderNumber":"HB-3","amount":"1"}}`)
	require.Equal(t, 1, f.dlqLen(t))

	require.NoError(t, f.db.Close())

	report, err := f.replay.Replay(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Requeued)
	assert.Equal(t, 1, f.dlqLen(t))
}
