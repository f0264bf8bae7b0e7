package api

import (
	"context"
	"net/http"
	"time"

	"huddle-cli/internal/model"
)

// taskUpdate is the whole-document PUT payload: title, status and the full
// serialized message forest. The backend recomputes mentioned_users from
// the messages, so it is not sent.
type taskUpdate struct {
	Title    string           `json:"title"`
	Status   model.TaskStatus `json:"status"`
	Messages []model.Message  `json:"messages"`
}

type taskCreate struct {
	Title     string           `json:"title"`
	Status    model.TaskStatus `json:"status"`
	Messages  []model.Message  `json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
}

// Tasks returns every task the session user owns or is mentioned in.
func (c *Client) Tasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.doJSON(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Messages == nil {
			tasks[i].Messages = []model.Message{}
		}
	}
	return tasks, nil
}

// CreateTask creates an empty-discussion task and returns the canonical
// record.
func (c *Client) CreateTask(ctx context.Context, title string, status model.TaskStatus) (model.Task, error) {
	payload := taskCreate{
		Title:     title,
		Status:    status,
		Messages:  []model.Message{},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	var t model.Task
	if err := c.doJSON(ctx, http.MethodPost, "/tasks", payload, &t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// UpdateTask pushes the whole task and returns the store's canonical copy,
// which callers adopt wholesale.
func (c *Client) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	payload := taskUpdate{
		Title:    task.Title,
		Status:   task.Status,
		Messages: normalizeMessages(task.Messages),
	}
	var t model.Task
	if err := c.doJSON(ctx, http.MethodPut, "/tasks/"+task.ID, payload, &t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// normalizeMessages guarantees every node serializes with a reply array,
// never null, at all depths.
func normalizeMessages(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		m.Replies = normalizeMessages(m.Replies)
		out[i] = m
	}
	return out
}
