package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"character-chat/backend/internal/chatui"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubServer(t *testing.T) *chatui.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/characters", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"id": "pirate", "name": "Captain Rook"}})
	})
	r.GET("/characters/pirate", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": "pirate", "name": "Captain Rook", "greetingText": "Ahoy!"})
	})
	r.GET("/characters/pirate/messages", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{})
	})
	r.POST("/characters/pirate/messages", func(c *gin.Context) {
		var body struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Content == "fail" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "quota exceeded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Arr, you said " + body.Content})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return chatui.NewClient(srv.URL, srv.Client())
}

func TestChatSession(t *testing.T) {
	client := stubServer(t)
	var out bytes.Buffer

	err := chat(context.Background(), client, "pirate", strings.NewReader("Hello\nfail\nBye\n\n"), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Captain Rook: Ahoy!")
	assert.Contains(t, text, "Captain Rook: Arr, you said Hello")
	assert.Contains(t, text, "! Failed to send message: server returned 500: quota exceeded")
	assert.Contains(t, text, "Captain Rook: Arr, you said Bye")
}

func TestListCharacters(t *testing.T) {
	client := stubServer(t)
	var out bytes.Buffer

	require.NoError(t, listCharacters(context.Background(), client, &out))
	assert.Contains(t, out.String(), "pirate")
	assert.Contains(t, out.String(), "Captain Rook")
}
