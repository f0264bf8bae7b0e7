package api

import (
	"context"
	"net/http"

	"huddle-cli/internal/model"
)

// Projects lists the projects the session user is a member of.
func (c *Client) Projects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := c.doJSON(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Project fetches one project, notes included.
func (c *Client) Project(ctx context.Context, id string) (model.Project, error) {
	var p model.Project
	if err := c.doJSON(ctx, http.MethodGet, "/projects/"+id, nil, &p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

type projectCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type projectCreated struct {
	Message string `json:"Message"`
	Title   string `json:"Title"`
	ID      string `json:"id"`
}

// CreateProject creates a project with the session user as sole member and
// returns its id.
func (c *Client) CreateProject(ctx context.Context, title, description string) (string, error) {
	var out projectCreated
	if err := c.doJSON(ctx, http.MethodPost, "/projects", projectCreate{Title: title, Description: description}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

type noteBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// AddNote attaches a note to a project and returns the note id.
func (c *Client) AddNote(ctx context.Context, projectID, title, body string) (string, error) {
	var out struct {
		Message string `json:"message"`
		NoteID  string `json:"note_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/projects/"+projectID+"/notes", noteBody{Title: title, Body: body}, &out); err != nil {
		return "", err
	}
	return out.NoteID, nil
}

// UpdateNote replaces a note's title and body.
func (c *Client) UpdateNote(ctx context.Context, projectID, noteID, title, body string) error {
	return c.doJSON(ctx, http.MethodPut, "/projects/"+projectID+"/notes/"+noteID, noteBody{Title: title, Body: body}, nil)
}

// DeleteNote removes a note from a project.
func (c *Client) DeleteNote(ctx context.Context, projectID, noteID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/projects/"+projectID+"/notes/"+noteID, nil, nil)
}

// AddMember adds a user to a project by email. Creator-only on the
// backend; a 403 comes back for anyone else.
func (c *Client) AddMember(ctx context.Context, projectID, email string) (model.Member, error) {
	var out struct {
		Message string       `json:"message"`
		Member  model.Member `json:"member"`
	}
	payload := struct {
		Email string `json:"email"`
	}{Email: email}
	if err := c.doJSON(ctx, http.MethodPost, "/projects/"+projectID+"/members", payload, &out); err != nil {
		return model.Member{}, err
	}
	return out.Member, nil
}
