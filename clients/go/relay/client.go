// Package relay provides a client for the ubo-relay-chat HTTP API.
package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a relay-chat API client. Authenticate with Login before
// calling the session-protected endpoints.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request, attaching the session token when
// one is set.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("relay error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// User represents a registered account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Message represents a chat message.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Room represents a shared channel.
type Room struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MessageCount int64  `json:"message_count"`
	LastActive   string `json:"last_active"`
}

// registerRequest is the request body for registration.
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new account.
func (c *Client) Register(username, password string) (*User, error) {
	body, _ := json.Marshal(registerRequest{Username: username, Password: password})
	respBody, err := c.doRequest("POST", "/register", body)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// loginResponse is the response from login.
type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login authenticates and stores the session token on the client.
func (c *Client) Login(username, password string) (*User, error) {
	body, _ := json.Marshal(registerRequest{Username: username, Password: password})
	respBody, err := c.doRequest("POST", "/login", body)
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}

	c.Token = resp.Token
	return &resp.User, nil
}

// Logout revokes the session token.
func (c *Client) Logout() error {
	_, err := c.doRequest("POST", "/logout", nil)
	if err == nil {
		c.Token = ""
	}
	return err
}

// ListUsers lists the other registered users.
func (c *Client) ListUsers() ([]User, error) {
	respBody, err := c.doRequest("GET", "/users", nil)
	if err != nil {
		return nil, err
	}

	var users []User
	if err := json.Unmarshal(respBody, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// postDirectMessageRequest is the request body for a direct message.
type postDirectMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
	Image       string `json:"image,omitempty"`
}

// postMessageResponse is the response from posting a message.
type postMessageResponse struct {
	Success bool     `json:"success"`
	Message *Message `json:"message"`
}

// SendMessage posts a direct message to a recipient.
func (c *Client) SendMessage(recipientID, text, image string) (*Message, error) {
	body, _ := json.Marshal(postDirectMessageRequest{RecipientID: recipientID, Message: text, Image: image})
	respBody, err := c.doRequest("POST", "/messages", body)
	if err != nil {
		return nil, err
	}

	var resp postMessageResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Message, nil
}

// Conversation fetches the full history with a recipient, oldest first.
func (c *Client) Conversation(recipientID string) ([]Message, error) {
	respBody, err := c.doRequest("GET", "/conversations/"+url.PathEscape(recipientID), nil)
	if err != nil {
		return nil, err
	}

	var messages []Message
	if err := json.Unmarshal(respBody, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// createRoomRequest is the request body for creating a room.
type createRoomRequest struct {
	Name string `json:"name"`
}

// CreateRoom creates a new room.
func (c *Client) CreateRoom(name string) (*Room, error) {
	body, _ := json.Marshal(createRoomRequest{Name: name})
	respBody, err := c.doRequest("POST", "/rooms", body)
	if err != nil {
		return nil, err
	}

	var room Room
	if err := json.Unmarshal(respBody, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms lists all rooms, most recently active first.
func (c *Client) ListRooms() ([]Room, error) {
	respBody, err := c.doRequest("GET", "/rooms", nil)
	if err != nil {
		return nil, err
	}

	var rooms []Room
	if err := json.Unmarshal(respBody, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// postRoomMessageRequest is the request body for a room message.
type postRoomMessageRequest struct {
	Message string `json:"message"`
	Image   string `json:"image,omitempty"`
}

// SendRoomMessage posts a message to a room.
func (c *Client) SendRoomMessage(roomID, text, image string) (*Message, error) {
	body, _ := json.Marshal(postRoomMessageRequest{Message: text, Image: image})
	respBody, err := c.doRequest("POST", "/rooms/"+url.PathEscape(roomID)+"/messages", body)
	if err != nil {
		return nil, err
	}

	var resp postMessageResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Message, nil
}

// RoomMessages fetches a room's full history, oldest first.
func (c *Client) RoomMessages(roomID string) ([]Message, error) {
	respBody, err := c.doRequest("GET", "/rooms/"+url.PathEscape(roomID)+"/messages", nil)
	if err != nil {
		return nil, err
	}

	var messages []Message
	if err := json.Unmarshal(respBody, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
