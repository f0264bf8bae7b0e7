package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"huddle-cli/internal/discussion"
	"huddle-cli/internal/model"
)

func TestLogin_FormEncodedAndTokenStored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Fatalf("content type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "s3cret" {
			t.Fatalf("credentials not forwarded: %v", r.PostForm)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1", "token_type": "bearer"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	tok, err := c.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok != "tok-1" || c.token != "tok-1" {
		t.Fatalf("token not stored: %q", tok)
	}
}

func TestUpdateTask_PushesWholeForest(t *testing.T) {
	var got taskUpdate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/tasks/t1" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Fatalf("auth header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(model.Task{ID: "t1", Title: got.Title, Status: got.Status, Messages: got.Messages})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	parent := "root"
	task := model.Task{
		ID:     "t1",
		Title:  "Deploy",
		Status: model.TaskStatusPending,
		Messages: []model.Message{
			{ID: "root", Text: "hi", Replies: []model.Message{
				{ID: "r1", Text: "reply", ParentID: &parent},
			}},
		},
	}
	out, err := c.UpdateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Messages) != 1 || len(got.Messages[0].Replies) != 1 {
		t.Fatalf("forest not sent whole: %+v", got.Messages)
	}
	if got.Messages[0].Replies[0].Replies == nil {
		t.Fatalf("leaf replies must serialize as [], not null")
	}
	if out.ID != "t1" {
		t.Fatalf("canonical task not returned: %+v", out)
	}
}

func TestStatusErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Task not found or you don't have permission"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.UpdateTask(context.Background(), model.Task{ID: "nope"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("want 404 classification, got %v", err)
	}
	var se StatusError
	if !errors.As(err, &se) || se.Detail == "" {
		t.Fatalf("detail lost: %v", err)
	}

	// Classification survives caller wrapping.
	wrapped := fmt.Errorf("fetch task: %w", err)
	if !IsNotFound(wrapped) {
		t.Fatalf("want 404 classification through wrapping, got %v", wrapped)
	}
	if IsUnauthorized(wrapped) {
		t.Fatalf("404 misread as 401")
	}
}

func TestTasks_NormalizesNilMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"t1","title":"T","status":"pending","messages":null}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	tasks, err := c.Tasks(context.Background())
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if tasks[0].Messages == nil {
		t.Fatalf("messages should never be nil")
	}
}

func TestMailClient_DisabledIsNoOp(t *testing.T) {
	m := NewMailClient("", "", "")
	m.Endpoint = "http://127.0.0.1:1" // would fail if contacted
	err := m.SendNotification(context.Background(), discussion.Notification{RecipientEmail: "x@example.com"})
	if err != nil {
		t.Fatalf("disabled mailer must be silent: %v", err)
	}
}

func TestMailClient_PayloadShape(t *testing.T) {
	var got mailSend
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMailClient("svc", "tpl", "key")
	m.Endpoint = srv.URL
	err := m.SendNotification(context.Background(), discussion.Notification{
		SenderName:     "Alice",
		ReceiverName:   "Bob",
		RecipientEmail: "bob@example.com",
		Message:        "hello @bob",
		TaskTitle:      "Deploy",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.ServiceID != "svc" || got.TemplateID != "tpl" || got.UserID != "key" {
		t.Fatalf("ids wrong: %+v", got)
	}
	if got.TemplateParams["email"] != "bob@example.com" || got.TemplateParams["task_title"] != "Deploy" {
		t.Fatalf("params wrong: %+v", got.TemplateParams)
	}
}
