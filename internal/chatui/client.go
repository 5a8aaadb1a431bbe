package chatui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"character-chat/backend/internal/feed"
	"character-chat/backend/internal/models"

	"github.com/gorilla/websocket"
)

// ErrCharacterNotFound is returned when the server does not know the character
var ErrCharacterNotFound = errors.New("character not found")

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the chat server's HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL (http://host:port)
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func characterPath(id string) string {
	return "/characters/" + url.PathEscape(id)
}

// Character fetches one character
func (c *Client) Character(ctx context.Context, id string) (*models.Character, error) {
	var character models.Character
	if err := c.do(ctx, http.MethodGet, characterPath(id), nil, &character); err != nil {
		return nil, err
	}
	return &character, nil
}

// Characters lists every character
func (c *Client) Characters(ctx context.Context) ([]models.Character, error) {
	var characters []models.Character
	if err := c.do(ctx, http.MethodGet, "/characters", nil, &characters); err != nil {
		return nil, err
	}
	return characters, nil
}

// Messages fetches the stored history, oldest first
func (c *Client) Messages(ctx context.Context, id string) ([]models.Message, error) {
	var messages []models.Message
	if err := c.do(ctx, http.MethodGet, characterPath(id)+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Send posts content and returns the character's reply
func (c *Client) Send(ctx context.Context, id, content string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, characterPath(id)+"/messages", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Watch streams the character's persisted turns to fn until ctx is done or
// the connection drops
func (c *Client) Watch(ctx context.Context, id string, fn func(models.Message)) error {
	wsURL, err := url.Parse(c.baseURL + characterPath(id) + "/messages/ws")
	if err != nil {
		return err
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return ErrCharacterNotFound
		}
		return fmt.Errorf("connect to feed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event feed.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read feed: %w", err)
		}
		if event.Type == feed.EventMessage && event.Content != nil {
			fn(*event.Content)
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusNotFound && errBody.Message == "Character not found!" {
			return ErrCharacterNotFound
		}
		msg := errBody.Error
		if msg == "" {
			msg = errBody.Message
		}
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
