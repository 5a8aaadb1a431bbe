package chatui

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"character-chat/backend/internal/ai"
	"character-chat/backend/internal/api"
	"character-chat/backend/internal/feed"
	"character-chat/backend/internal/models"
	"character-chat/backend/internal/repository"
	"character-chat/backend/internal/service"
	"character-chat/backend/internal/testutil"
	"character-chat/backend/internal/transcript"
	apperrors "character-chat/backend/pkg/errors"
	"character-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pirate() models.Character {
	return models.Character{ID: "pirate", Name: "Captain Rook", BasePrompt: "You are a pirate.", GreetingText: "Ahoy!"}
}

func TestStateOptimisticSend(t *testing.T) {
	s := NewState(pirate(), []models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
		{ID: "2", Role: models.RoleModel, Content: "Arr"},
	})
	require.Len(t, s.Turns(), 3)
	assert.Equal(t, "Ahoy!", s.Turns()[0].Content)

	_, err := s.Begin("   ")
	assert.ErrorIs(t, err, ErrBlankInput)
	assert.False(t, s.Pending())

	sent, err := s.Begin("Where is the treasure?")
	require.NoError(t, err)
	assert.True(t, s.Pending())
	assert.Equal(t, models.RoleUser, sent.Role)
	assert.NotEmpty(t, sent.ID)

	_, err = s.Begin("Hurry up")
	assert.ErrorIs(t, err, ErrSendInProgress)

	s.Complete("Buried, of course")
	assert.False(t, s.Pending())
	turns := s.Turns()
	require.Len(t, turns, 5)
	assert.Equal(t, "Where is the treasure?", turns[3].Content)
	assert.Equal(t, models.RoleModel, turns[4].Role)
}

func TestStateFailureKeepsOptimisticTurn(t *testing.T) {
	s := NewState(pirate(), nil)

	_, err := s.Begin("Hello")
	require.NoError(t, err)
	s.Fail()

	assert.False(t, s.Pending())
	turns := s.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "Hello", turns[1].Content)

	_, err = s.Begin("Hello again")
	assert.NoError(t, err)
}

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(context.Context, []transcript.Turn) (string, error) {
	return s.reply, s.err
}

func newServer(t *testing.T) (*Client, *stubCompleter, *feed.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	characters := repository.NewGormCharacterRepository(db)
	c := pirate()
	require.NoError(t, characters.Create(context.Background(), &c))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logger.Discard()
	hub := feed.NewHub(log)
	go hub.Run(ctx)

	completer := &stubCompleter{reply: "Arr, greetings matey"}
	catalog := service.NewCharacterService(characters, log)
	conversations := service.NewConversationService(characters, repository.NewGormMessageRepository(db), completer, hub, log)

	r := gin.New()
	r.Use(apperrors.ErrorHandler())
	api.NewMessageController(conversations, catalog, hub).RegisterRoutes(r.Group(""))
	api.NewCharacterHandler(catalog).RegisterRoutes(r.Group(""))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client()), completer, hub
}

func TestClientConversation(t *testing.T) {
	client, completer, _ := newServer(t)
	ctx := context.Background()

	character, err := client.Character(ctx, "pirate")
	require.NoError(t, err)
	assert.Equal(t, "Ahoy!", character.GreetingText)

	all, err := client.Characters(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	history, err := client.Messages(ctx, "pirate")
	require.NoError(t, err)
	assert.Empty(t, history)

	reply, err := client.Send(ctx, "pirate", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Arr, greetings matey", reply)

	history, err = client.Messages(ctx, "pirate")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	completer.err = &ai.UpstreamError{Message: "quota exceeded"}
	_, err = client.Send(ctx, "pirate", "Again")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, "quota exceeded", apiErr.Message)

	_, err = client.Send(ctx, "nobody", "Hello")
	assert.ErrorIs(t, err, ErrCharacterNotFound)
	_, err = client.Character(ctx, "nobody")
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}

func TestClientWatchReceivesPersistedTurns(t *testing.T) {
	client, _, hub := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan models.Message, 4)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- client.Watch(ctx, "pirate", func(m models.Message) { received <- m })
	}()

	require.Eventually(t, func() bool { return hub.Subscribers("pirate") == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err := client.Send(ctx, "pirate", "Hello")
	require.NoError(t, err)

	var got []models.Message
	for len(got) < 2 {
		select {
		case m := <-received:
			got = append(got, m)
		case <-ctx.Done():
			t.Fatal("no feed events received")
		}
	}

	assert.Equal(t, models.RoleUser, got[0].Role)
	assert.Equal(t, models.RoleModel, got[1].Role)

	cancel()
	select {
	case err := <-watchErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestClientWatchUnknownCharacter(t *testing.T) {
	client, _, _ := newServer(t)

	err := client.Watch(context.Background(), "nobody", func(models.Message) {})
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}
