package api

import (
	"context"
	"net/http"

	"huddle-cli/internal/model"
)

// DirectMessages returns every DM the session user sent or received,
// oldest first.
func (c *Client) DirectMessages(ctx context.Context) ([]model.DirectMessage, error) {
	var msgs []model.DirectMessage
	if err := c.doJSON(ctx, http.MethodGet, "/messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Conversations lists the users the session user has exchanged DMs with.
func (c *Client) Conversations(ctx context.Context) ([]model.Conversation, error) {
	var convs []model.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/messages/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ConversationWith returns the DM history with one user, oldest first.
func (c *Client) ConversationWith(ctx context.Context, userID string) ([]model.DirectMessage, error) {
	var msgs []model.DirectMessage
	if err := c.doJSON(ctx, http.MethodGet, "/messages/"+userID, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

type dmCreate struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// SendDirectMessage sends a DM and returns the stored record.
func (c *Client) SendDirectMessage(ctx context.Context, receiverID, content string) (model.DirectMessage, error) {
	var msg model.DirectMessage
	if err := c.doJSON(ctx, http.MethodPost, "/messages", dmCreate{ReceiverID: receiverID, Content: content}, &msg); err != nil {
		return model.DirectMessage{}, err
	}
	return msg, nil
}
