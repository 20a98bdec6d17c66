package chatclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rahulm682/Chat-App/internal/model"
)

// RestClient talks to the chat application server's REST API. Every call
// carries the session token as a Bearer header.
type RestClient struct {
	http *resty.Client
}

func NewRestClient(baseURL, token string) *RestClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	return &RestClient{http: client}
}

type apiError struct {
	Message string `json:"error"`
}

// StatusError is a non-2xx REST response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func checkStatus(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	msg := ""
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr != nil {
		msg = apiErr.Message
	}
	return &StatusError{StatusCode: resp.StatusCode(), Message: msg}
}

// SendMessage creates a message in the chat and returns the stored record.
func (c *RestClient) SendMessage(ctx context.Context, chatID, content, messageType string) (*model.MessageWithReactions, error) {
	var msg model.MessageWithReactions
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"chatId": chatID, "content": content, "type": messageType}).
		SetResult(&msg).
		SetError(&apiError{}).
		Post("/api/messages")
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages fetches one history page. Page 1 is the newest; messages
// within a page arrive oldest-first, ready to render.
func (c *RestClient) GetMessages(ctx context.Context, chatID string, page, limit int64) (*model.MessagePage, error) {
	var result model.MessagePage
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.FormatInt(page, 10)).
		SetQueryParam("limit", strconv.FormatInt(limit, 10)).
		SetResult(&result).
		SetError(&apiError{}).
		Get("/api/messages/" + chatID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &result, nil
}

type markReadResponse struct {
	Success       bool  `json:"success"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// MarkRead acknowledges every message in the chat and returns how many
// were newly marked.
func (c *RestClient) MarkRead(ctx context.Context, chatID string) (int64, error) {
	var result markReadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"chatId": chatID}).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/api/messages/mark-read")
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// AddReaction sets the caller's reaction on a message, replacing any
// previous one, and returns the authoritative record.
func (c *RestClient) AddReaction(ctx context.Context, messageID, emoji string) (*model.Reaction, error) {
	var reaction model.Reaction
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"messageId": messageID, "emoji": emoji}).
		SetResult(&reaction).
		SetError(&apiError{}).
		Post("/api/reactions")
	if err != nil {
		return nil, fmt.Errorf("add reaction: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &reaction, nil
}

type removeReactionResponse struct {
	Removed bool `json:"removed"`
}

// RemoveReaction deletes the caller's reaction. Removing a reaction that
// does not exist is a success with Removed=false.
func (c *RestClient) RemoveReaction(ctx context.Context, messageID string) (bool, error) {
	var result removeReactionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&apiError{}).
		Delete("/api/reactions/" + messageID)
	if err != nil {
		return false, fmt.Errorf("remove reaction: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return false, err
	}
	return result.Removed, nil
}

// ListChats returns the caller's chats with unread counts, most recently
// active first.
func (c *RestClient) ListChats(ctx context.Context) ([]model.ChatSummary, error) {
	var summaries []model.ChatSummary
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&summaries).
		SetError(&apiError{}).
		Get("/api/chats")
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return summaries, nil
}
