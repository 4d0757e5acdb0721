package resend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"channel-relay-bot/internal/database/models"
	"channel-relay-bot/internal/locales"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockBot is a mock implementing the telegoapi.BotAPI interface
type MockBot struct {
	mock.Mock
	mu        sync.Mutex
	sentTexts []string
	editTexts []string
}

func (m *MockBot) recordSend(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentTexts = append(m.sentTexts, text)
}

func (m *MockBot) recordEdit(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editTexts = append(m.editTexts, text)
}

func (m *MockBot) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sentTexts)
}

func (m *MockBot) firstEdit() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.editTexts) == 0 {
		return ""
	}
	return m.editTexts[0]
}

func (m *MockBot) lastEdit() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.editTexts) == 0 {
		return ""
	}
	return m.editTexts[len(m.editTexts)-1]
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	m.recordSend(params.Text)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	return nil, args.Error(1)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendAudio(ctx context.Context, params *telego.SendAudioParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendAnimation(ctx context.Context, params *telego.SendAnimationParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendMediaGroup(ctx context.Context, params *telego.SendMediaGroupParams) ([]telego.Message, error) {
	args := m.Called(ctx, params)
	if msgs, ok := args.Get(0).([]telego.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	m.recordEdit(params.Text)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) EditMessageReplyMarkup(ctx context.Context, params *telego.EditMessageReplyMarkupParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPostRepository is a mock for database.PostRepository
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) CreatePost(ctx context.Context, post *models.RelayedPost, media []models.RelayedMediaItem) (*models.RelayedPost, error) {
	args := m.Called(ctx, post, media)
	if p, ok := args.Get(0).(*models.RelayedPost); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostRepository) FindLatestSerialByPrefix(ctx context.Context, prefix string) (string, error) {
	args := m.Called(ctx, prefix)
	return args.String(0), args.Error(1)
}

func (m *MockPostRepository) ExistsByMediaFileID(ctx context.Context, fileID string) (bool, error) {
	args := m.Called(ctx, fileID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) FindAllOrderByCreatedAtAsc(ctx context.Context) ([]models.RelayedPost, error) {
	args := m.Called(ctx)
	if posts, ok := args.Get(0).([]models.RelayedPost); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostRepository) FindMediaByPostID(ctx context.Context, postID string) ([]models.RelayedMediaItem, error) {
	args := m.Called(ctx, postID)
	if media, ok := args.Get(0).([]models.RelayedMediaItem); ok {
		return media, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- Tests ---

const (
	testDestChatID   = int64(-2001)
	testNotifyChatID = int64(555)
	testStatusMsgID  = 42
)

func textPosts(n int) []models.RelayedPost {
	posts := make([]models.RelayedPost, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, models.RelayedPost{OutputText: "post"})
	}
	return posts
}

func waitIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	require.Eventually(t, func() bool { return !o.Running() }, 2*time.Second, 5*time.Millisecond)
}

func TestOrchestratorResendsFullHistory(t *testing.T) {
	locales.Init("en")
	bot := new(MockBot)
	posts := new(MockPostRepository)

	history := textPosts(3)
	posts.On("FindAllOrderByCreatedAtAsc", mock.Anything).Return(history, nil).Once()
	posts.On("FindMediaByPostID", mock.Anything, mock.Anything).Return([]models.RelayedMediaItem{}, nil).Times(3)
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{}, nil)
	bot.On("EditMessageText", mock.Anything, mock.Anything).Return(&telego.Message{}, nil)

	o, err := NewOrchestrator(context.Background(), "main", "resend_all", bot, posts, testDestChatID, time.Millisecond)
	require.NoError(t, err)

	o.Trigger(testNotifyChatID, testStatusMsgID)
	waitIdle(t, o)

	posts.AssertExpectations(t)
	assert.Equal(t, 3, bot.sentCount())
	// The run announces itself before the first post goes out.
	assert.Equal(t, "Resending 0/3 (0%)", bot.firstEdit())
	// The terminal notice lands in the same status message.
	assert.Contains(t, bot.lastEdit(), "3")
	assert.Contains(t, bot.lastEdit(), "complete")
}

func TestOrchestratorFirstPostWithoutDelay(t *testing.T) {
	locales.Init("en")
	bot := new(MockBot)
	posts := new(MockPostRepository)

	posts.On("FindAllOrderByCreatedAtAsc", mock.Anything).Return(textPosts(1), nil).Once()
	posts.On("FindMediaByPostID", mock.Anything, mock.Anything).Return([]models.RelayedMediaItem{}, nil).Once()
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{}, nil).Once()
	bot.On("EditMessageText", mock.Anything, mock.Anything).Return(&telego.Message{}, nil)

	// An hour-long interval: the run can only finish in time if the
	// first post is sent before any tick wait.
	o, err := NewOrchestrator(context.Background(), "main", "resend_all", bot, posts, testDestChatID, time.Hour)
	require.NoError(t, err)

	o.Trigger(testNotifyChatID, testStatusMsgID)
	waitIdle(t, o)

	bot.AssertExpectations(t)
	assert.Equal(t, 1, bot.sentCount())
	assert.Contains(t, bot.lastEdit(), "complete")
}

func TestOrchestratorHistoryLoadFailure(t *testing.T) {
	locales.Init("en")
	bot := new(MockBot)
	posts := new(MockPostRepository)

	posts.On("FindAllOrderByCreatedAtAsc", mock.Anything).Return(nil, errors.New("db down")).Once()
	bot.On("EditMessageText", mock.Anything, mock.Anything).Return(&telego.Message{}, nil).Once()

	o, err := NewOrchestrator(context.Background(), "main", "resend_all", bot, posts, testDestChatID, time.Millisecond)
	require.NoError(t, err)

	o.Trigger(testNotifyChatID, testStatusMsgID)
	waitIdle(t, o)

	bot.AssertExpectations(t)
	assert.Equal(t, 0, bot.sentCount())
	assert.Contains(t, bot.lastEdit(), "Failed to load relay history")
}

func TestOrchestratorEmptyHistory(t *testing.T) {
	locales.Init("en")
	bot := new(MockBot)
	posts := new(MockPostRepository)

	posts.On("FindAllOrderByCreatedAtAsc", mock.Anything).Return([]models.RelayedPost{}, nil).Once()
	bot.On("EditMessageText", mock.Anything, mock.Anything).Return(&telego.Message{}, nil).Once()

	o, err := NewOrchestrator(context.Background(), "main", "resend_all", bot, posts, testDestChatID, time.Millisecond)
	require.NoError(t, err)

	o.Trigger(testNotifyChatID, testStatusMsgID)
	waitIdle(t, o)

	bot.AssertExpectations(t)
	assert.Equal(t, 0, bot.sentCount())
	assert.Contains(t, bot.lastEdit(), "No history")
}

func TestOrchestratorRejectsConcurrentTrigger(t *testing.T) {
	locales.Init("en")
	bot := new(MockBot)
	posts := new(MockPostRepository)

	started := make(chan struct{})
	posts.On("FindAllOrderByCreatedAtAsc", mock.Anything).
		Run(func(mock.Arguments) { close(started) }).
		Return(textPosts(2), nil).Once()
	posts.On("FindMediaByPostID", mock.Anything, mock.Anything).Return([]models.RelayedMediaItem{}, nil)
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{}, nil)
	bot.On("EditMessageText", mock.Anything, mock.Anything).Return(&telego.Message{}, nil)

	o, err := NewOrchestrator(context.Background(), "main", "resend_all", bot, posts, testDestChatID, 50*time.Millisecond)
	require.NoError(t, err)

	o.Trigger(testNotifyChatID, testStatusMsgID)
	<-started
	require.True(t, o.Running())

	// Second trigger while active: rejected with a notice, no second run.
	o.Trigger(testNotifyChatID, 0)
	waitIdle(t, o)

	posts.AssertNumberOfCalls(t, "FindAllOrderByCreatedAtAsc", 1)

	bot.mu.Lock()
	rejected := false
	for _, text := range bot.sentTexts {
		if text == "Resend already running, try again later" {
			rejected = true
		}
	}
	bot.mu.Unlock()
	assert.True(t, rejected, "expected an already-running notice")
}

func TestOrchestratorNoDestination(t *testing.T) {
	locales.Init("en")
	bot := new(MockBot)
	posts := new(MockPostRepository)

	bot.On("EditMessageText", mock.Anything, mock.Anything).Return(&telego.Message{}, nil).Once()

	o, err := NewOrchestrator(context.Background(), "main", "resend_all", bot, posts, 0, time.Millisecond)
	require.NoError(t, err)

	o.Trigger(testNotifyChatID, testStatusMsgID)
	waitIdle(t, o)

	posts.AssertNotCalled(t, "FindAllOrderByCreatedAtAsc", mock.Anything)
	assert.Contains(t, bot.lastEdit(), "No resend destination")
}

func TestOrchestratorResendsMediaPosts(t *testing.T) {
	locales.Init("en")
	bot := new(MockBot)
	posts := new(MockPostRepository)

	history := []models.RelayedPost{
		{OutputText: "single"},
		{OutputText: "grouped"},
	}
	posts.On("FindAllOrderByCreatedAtAsc", mock.Anything).Return(history, nil).Once()
	posts.On("FindMediaByPostID", mock.Anything, mock.Anything).
		Return([]models.RelayedMediaItem{{Kind: models.MediaKindPhoto, FileID: "p1"}}, nil).Once()
	posts.On("FindMediaByPostID", mock.Anything, mock.Anything).
		Return([]models.RelayedMediaItem{
			{Kind: models.MediaKindPhoto, FileID: "p2"},
			{Kind: models.MediaKindVideo, FileID: "v1"},
		}, nil).Once()

	var photo *telego.SendPhotoParams
	bot.On("SendPhoto", mock.Anything, mock.AnythingOfType("*telego.SendPhotoParams")).
		Run(func(args mock.Arguments) {
			photo = args.Get(1).(*telego.SendPhotoParams)
		}).
		Return(&telego.Message{}, nil).Once()
	var batch *telego.SendMediaGroupParams
	bot.On("SendMediaGroup", mock.Anything, mock.AnythingOfType("*telego.SendMediaGroupParams")).
		Run(func(args mock.Arguments) {
			batch = args.Get(1).(*telego.SendMediaGroupParams)
		}).
		Return([]telego.Message{}, nil).Once()
	bot.On("EditMessageText", mock.Anything, mock.Anything).Return(&telego.Message{}, nil)

	o, err := NewOrchestrator(context.Background(), "main", "resend_all", bot, posts, testDestChatID, time.Millisecond)
	require.NoError(t, err)

	o.Trigger(testNotifyChatID, testStatusMsgID)
	waitIdle(t, o)

	bot.AssertExpectations(t)
	require.NotNil(t, photo)
	assert.Equal(t, telegoutil.ID(testDestChatID), photo.ChatID)
	assert.Equal(t, "single", photo.Caption)

	require.NotNil(t, batch)
	require.Len(t, batch.Media, 2)
	first, ok := batch.Media[0].(*telego.InputMediaPhoto)
	require.True(t, ok)
	assert.Equal(t, "grouped", first.Caption)
}
