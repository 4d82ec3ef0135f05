package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/queue"
	"collaborative-editor/internal/repository/mocks"
	"collaborative-editor/internal/service"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{name: "ok", text: "hi"},
		{name: "empty", text: "", want: service.ErrMessageEmpty},
		{name: "too long", text: strings.Repeat("a", service.MaxMessageLength+1), want: service.ErrMessageTooLong},
		{name: "invalid utf8", text: string([]byte{0xff, 0xfe}), want: service.ErrMessageInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, service.ValidateMessage(tt.text), tt.want)
		})
	}
}

func TestChatService_LoadFailureStartsEmpty(t *testing.T) {
	repo := new(mocks.ChatLogRepository)
	repo.On("Load", mock.Anything).Return(nil, errors.New("corrupt log")).Once()

	svc := service.NewChatService(context.Background(), repo, queue.NewKeyedQueue(nil), nil)

	assert.Empty(t, svc.History())
	repo.AssertExpectations(t)
}

func TestChatService_AppendsAndPersistsFullLog(t *testing.T) {
	existing := []domain.ChatMessage{
		{Sender: "old", Text: "earlier", Kind: domain.ChatKindMessage, Timestamp: time.Unix(0, 0).UTC()},
	}
	repo := new(mocks.ChatLogRepository)
	repo.On("Load", mock.Anything).Return(existing, nil).Once()

	var mu sync.Mutex
	var saved [][]domain.ChatMessage
	repo.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			saved = append(saved, args.Get(1).([]domain.ChatMessage))
			mu.Unlock()
		}).Return(nil)

	q := queue.NewKeyedQueue(nil)
	svc := service.NewChatService(context.Background(), repo, q, nil)

	joined := svc.Joined("alice")
	assert.Equal(t, service.SystemSender, joined.Sender)
	assert.Equal(t, "alice joined the chat", joined.Text)
	assert.Equal(t, domain.ChatKindNotification, joined.Kind)

	date := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msg, err := svc.PostMessage("alice", "hi", date)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatKindMessage, msg.Kind)
	assert.True(t, msg.Timestamp.Equal(date))

	left := svc.Left("alice")
	assert.Equal(t, "alice left the chat", left.Text)

	require.NoError(t, q.Close(context.Background()))

	history := svc.History()
	require.Len(t, history, 4)
	assert.Equal(t, "earlier", history[0].Text)
	assert.Equal(t, "hi", history[2].Text)

	require.Len(t, saved, 3, "每次追加都要写回一次完整日志")
	assert.Len(t, saved[0], 2)
	assert.Len(t, saved[1], 3)
	assert.Equal(t, history, saved[2], "最后一次写入应是完整的最新日志")
}

func TestChatService_PostMessage_Validation(t *testing.T) {
	repo := new(mocks.ChatLogRepository)
	repo.On("Load", mock.Anything).Return(nil, nil).Once()
	q := queue.NewKeyedQueue(nil)
	svc := service.NewChatService(context.Background(), repo, q, nil)

	_, err := svc.PostMessage("bob", "", time.Time{})
	assert.ErrorIs(t, err, service.ErrMessageEmpty)

	require.NoError(t, q.Close(context.Background()))
	assert.Empty(t, svc.History())
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestChatService_PostMessage_ZeroDateUsesServerTime(t *testing.T) {
	repo := new(mocks.ChatLogRepository)
	repo.On("Load", mock.Anything).Return(nil, nil).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	q := queue.NewKeyedQueue(nil)
	svc := service.NewChatService(context.Background(), repo, q, nil)

	before := time.Now().UTC().Add(-time.Second)
	msg, err := svc.PostMessage("bob", "hello", time.Time{})
	require.NoError(t, err)
	assert.True(t, msg.Timestamp.After(before))

	require.NoError(t, q.Close(context.Background()))
}

func TestChatService_HistoryIsACopy(t *testing.T) {
	repo := new(mocks.ChatLogRepository)
	repo.On("Load", mock.Anything).Return(nil, nil).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	q := queue.NewKeyedQueue(nil)
	svc := service.NewChatService(context.Background(), repo, q, nil)

	_, err := svc.PostMessage("bob", "hello", time.Time{})
	require.NoError(t, err)

	h := svc.History()
	h[0].Text = "mutated"
	assert.Equal(t, "hello", svc.History()[0].Text)

	require.NoError(t, q.Close(context.Background()))
}
