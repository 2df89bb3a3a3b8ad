package service

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vocespace/spacekeeper/internal/modules/model"
)

type MockSpaceService struct {
	mock.Mock
}

func (m *MockSpaceService) GetSpace(ctx context.Context, spaceID string) (*model.Space, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) ListSpaces(ctx context.Context) (map[string]*model.Space, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*model.Space), args.Error(1)
}

func (m *MockSpaceService) DeleteSpace(ctx context.Context, spaceID string) error {
	return m.Called(ctx, spaceID).Error(0)
}

func (m *MockSpaceService) UpsertParticipant(ctx context.Context, spaceID, participantID string, patch model.ParticipantPatch) (*model.Space, error) {
	args := m.Called(ctx, spaceID, participantID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) RemoveParticipant(ctx context.Context, spaceID, participantID string) (*RemoveParticipantResult, error) {
	args := m.Called(ctx, spaceID, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RemoveParticipantResult), args.Error(1)
}

func (m *MockSpaceService) TransferOwnership(ctx context.Context, spaceID, newOwnerID string) (*model.Space, error) {
	args := m.Called(ctx, spaceID, newOwnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) GenUniqueParticipantName(ctx context.Context, spaceID string) (string, error) {
	args := m.Called(ctx, spaceID)
	return args.String(0), args.Error(1)
}

func (m *MockSpaceService) SetChildRoom(ctx context.Context, spaceID string, room model.ChildRoom) (*model.Space, error) {
	args := m.Called(ctx, spaceID, room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) AddParticipantToChildRoom(ctx context.Context, spaceID, childName, participantID string) (*model.Space, error) {
	args := m.Called(ctx, spaceID, childName, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) RemoveParticipantFromChildRoom(ctx context.Context, spaceID, childName, participantID string) (*model.Space, error) {
	args := m.Called(ctx, spaceID, childName, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) DeleteChildRoom(ctx context.Context, spaceID, childName string) (*model.Space, error) {
	args := m.Called(ctx, spaceID, childName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) RenameChildRoom(ctx context.Context, spaceID, childName, newName string) (*model.Space, error) {
	args := m.Called(ctx, spaceID, childName, newName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) SwitchChildRoomPrivacy(ctx context.Context, spaceID, childName string, isPrivate bool) (*model.Space, error) {
	args := m.Called(ctx, spaceID, childName, isPrivate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) AddStatusDefinition(ctx context.Context, spaceID string, def model.UserDefineStatus) (*model.Space, error) {
	args := m.Called(ctx, spaceID, def)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) UpdateRecordSettings(ctx context.Context, spaceID string, patch model.RecordPatch) (*model.Space, error) {
	args := m.Called(ctx, spaceID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) SetPersistence(ctx context.Context, spaceID, requesterID string, persistence bool) (*model.Space, error) {
	args := m.Called(ctx, spaceID, requesterID, persistence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) UpdateApps(ctx context.Context, spaceID, requesterID string, apps []string) (*model.Space, error) {
	args := m.Called(ctx, spaceID, requesterID, apps)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockSpaceService) Usage(ctx context.Context, spaceID string) ([]model.TimeRecord, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TimeRecord), args.Error(1)
}

func (m *MockSpaceService) AllUsage(ctx context.Context) (map[string][]model.TimeRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]model.TimeRecord), args.Error(1)
}

func (m *MockSpaceService) SendChat(ctx context.Context, spaceID string, msg model.ChatMessage) (*model.ChatMessage, error) {
	args := m.Called(ctx, spaceID, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatMessage), args.Error(1)
}

func (m *MockSpaceService) ChatHistory(ctx context.Context, spaceID string) ([]model.ChatMessage, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChatMessage), args.Error(1)
}
