package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vocespace/spacekeeper/internal/modules/model"
	"go.uber.org/zap"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(ctx context.Context, body any) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

func TestRelay_EmitPublishes(t *testing.T) {
	pub := &MockPublisher{}
	ev := model.Event{Name: model.EventOwnerChanged, SpaceID: "alpha"}
	pub.On("PublishJSON", mock.Anything, ev).Return(nil)

	NewRelay(pub, NewHub(zap.NewNop()), zap.NewNop()).Emit(context.Background(), ev)
	pub.AssertExpectations(t)
}

func TestRelay_FallsBackToLocalHub(t *testing.T) {
	hub, base := setupHubServer(t)
	conn := dial(t, base, "alpha", "A")
	require.Eventually(t, func() bool { return hub.Connections("alpha") == 1 }, 2*time.Second, 10*time.Millisecond)

	pub := &MockPublisher{}
	pub.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	NewRelay(pub, hub, zap.NewNop()).Emit(context.Background(), model.Event{Name: model.EventSpaceUpdated, SpaceID: "alpha"})
	assert.Equal(t, model.EventSpaceUpdated, readEvent(t, conn).Name)
}

func TestRelay_Deliver(t *testing.T) {
	hub, base := setupHubServer(t)
	conn := dial(t, base, "alpha", "A")
	require.Eventually(t, func() bool { return hub.Connections("alpha") == 1 }, 2*time.Second, 10*time.Millisecond)

	relay := NewRelay(&MockPublisher{}, hub, zap.NewNop())
	body, err := sonic.Marshal(model.Event{Name: model.EventChatMessage, SpaceID: "alpha", Payload: map[string]any{"content": "hi"}})
	require.NoError(t, err)

	require.NoError(t, relay.Deliver(context.Background(), body))
	ev := readEvent(t, conn)
	assert.Equal(t, model.EventChatMessage, ev.Name)
	assert.Equal(t, map[string]any{"content": "hi"}, ev.Payload)

	assert.Error(t, relay.Deliver(context.Background(), []byte("{")))
}
