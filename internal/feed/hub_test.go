package feed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"character-chat/backend/internal/models"
	"character-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(logger.Discard())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/characters/:id/messages/ws", func(c *gin.Context) {
		hub.Serve(c, c.Param("id"))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversToCharacterSubscribers(t *testing.T) {
	hub, base := startHub(t)

	pirate := dial(t, base+"/characters/pirate/messages/ws")
	other := dial(t, base+"/characters/wizard/messages/ws")
	require.Eventually(t, func() bool {
		return hub.Subscribers("pirate") == 1 && hub.Subscribers("wizard") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(models.Message{ID: "m1", CharacterID: "pirate", Content: "Hello", Role: models.RoleUser})

	pirate.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := pirate.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, EventMessage, event.Type)
	require.NotNil(t, event.Content)
	assert.Equal(t, "m1", event.Content.ID)
	assert.Equal(t, models.RoleUser, event.Content.Role)

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "subscribers of other characters receive nothing")
}

func TestHubForgetsClosedSubscribers(t *testing.T) {
	hub, base := startHub(t)

	conn := dial(t, base+"/characters/pirate/messages/ws")
	require.Eventually(t, func() bool { return hub.Subscribers("pirate") == 1 }, time.Second, 10*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	assert.Eventually(t, func() bool { return hub.Subscribers("pirate") == 0 }, time.Second, 10*time.Millisecond)
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub(logger.Discard())
	for i := 0; i < 1000; i++ {
		hub.Publish(models.Message{ID: "m", CharacterID: "pirate"})
	}
}
