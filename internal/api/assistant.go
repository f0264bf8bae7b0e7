package api

import (
	"context"
	"net/http"

	"huddle-cli/internal/model"
)

type assistantRequest struct {
	Messages []model.ChatTurn `json:"messages"`
}

// Ask sends the conversation so far to the assistant endpoint and returns
// its reply turn. The backend only reads the last user turn today, but the
// full history is sent so that can change without a client update.
func (c *Client) Ask(ctx context.Context, turns []model.ChatTurn) (model.ChatTurn, error) {
	var out model.ChatTurn
	if err := c.doJSON(ctx, http.MethodPost, "/llms", assistantRequest{Messages: turns}, &out); err != nil {
		return model.ChatTurn{}, err
	}
	return out, nil
}
