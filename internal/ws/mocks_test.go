package ws_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/chamber/internal/model"
)

// MockLedger is a testify mock for the hub's message store.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CreateText(ctx context.Context, senderID, chamberID, content string) (*model.Message, error) {
	args := m.Called(ctx, senderID, chamberID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockLedger) CreateReply(ctx context.Context, senderID, chamberID string, kind model.MessageType, content string, prevID, prevSender, prevContent string) (*model.Message, error) {
	args := m.Called(ctx, senderID, chamberID, kind, content, prevID, prevSender, prevContent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockLedger) CreateMediaPlaceholder(ctx context.Context, senderID, chamberID string, kind model.MessageType) (*model.Message, error) {
	args := m.Called(ctx, senderID, chamberID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockLedger) FinalizeMedia(ctx context.Context, id string, kind model.MessageType, contentPath string) error {
	args := m.Called(ctx, id, kind, contentPath)
	return args.Error(0)
}

func (m *MockLedger) GetByID(ctx context.Context, id, chamberID string) (*model.Message, error) {
	args := m.Called(ctx, id, chamberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

// MockRoster is a testify mock for chamber membership queries.
type MockRoster struct {
	mock.Mock
}

func (m *MockRoster) MemberIDs(ctx context.Context, chamberID string) ([]string, error) {
	args := m.Called(ctx, chamberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockBlobStore is a testify mock for media payload storage.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Save(ctx context.Context, kind model.MessageType, filename string, data []byte) (string, error) {
	args := m.Called(ctx, kind, filename, data)
	return args.String(0), args.Error(1)
}
