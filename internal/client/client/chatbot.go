package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/common"
)

const chatbotTimeout = 15 * time.Second

// ChatReply is the assistant's answer to one query.
type ChatReply struct {
	Response     string `json:"response"`
	RequiresAuth bool   `json:"requiresAuth"`
}

type chatQuery struct {
	Query  string `json:"query"`
	UserID string `json:"userId,omitempty"`
}

type chatError struct {
	Message string `json:"message"`
}

// TokenSource supplies the access token sent with signed-in queries.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// ChatbotClient talks to the HTTP assistant endpoint.
type ChatbotClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewChatbotClient builds a client for baseURL, e.g.
// "http://localhost:8080/api". A nil hc gets a client with a timeout.
func NewChatbotClient(baseURL string, hc *http.Client) *ChatbotClient {
	if hc == nil {
		hc = &http.Client{Timeout: chatbotTimeout}
	}
	return &ChatbotClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// UseTokens makes signed-in queries carry the caller's access token.
func (c *ChatbotClient) UseTokens(ts TokenSource) {
	c.tokens = ts
}

// SendQuery posts query on behalf of userID (empty when anonymous). Signed-in
// queries carry a bearer token; an expired one is refreshed and the query is
// sent once more. A non-2xx answer becomes an error carrying the server
// message.
func (c *ChatbotClient) SendQuery(ctx context.Context, query, userID string) (*ChatReply, error) {
	body, err := json.Marshal(chatQuery{Query: query, UserID: userID})
	if err != nil {
		return nil, err
	}

	var token string
	if userID != "" && c.tokens != nil {
		token = c.tokens.AccessToken()
	}

	status, raw, err := c.post(ctx, body, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && token != "" && serverMessage(raw) == common.ErrTokenExpired.Error() {
		if rerr := c.tokens.Refresh(ctx); rerr == nil {
			status, raw, err = c.post(ctx, body, c.tokens.AccessToken())
			if err != nil {
				return nil, err
			}
		}
	}

	if status < 200 || status > 299 {
		if status == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		if msg := serverMessage(raw); msg != "" {
			return nil, errors.New(msg)
		}
		return nil, fmt.Errorf("chatbot: %d %s", status, http.StatusText(status))
	}

	var reply ChatReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("chatbot: decode reply: %w", err)
	}
	return &reply, nil
}

func (c *ChatbotClient) post(ctx context.Context, body []byte, token string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chatbot/query", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

func serverMessage(raw []byte) string {
	var ce chatError
	if json.Unmarshal(raw, &ce) != nil {
		return ""
	}
	return ce.Message
}
