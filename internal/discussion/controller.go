package discussion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"huddle-cli/internal/model"
)

// TaskStore is the remote store of record for tasks. Updates carry the
// whole task (title, status, full message forest), never a delta.
type TaskStore interface {
	Tasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, title string, status model.TaskStatus) (model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) (model.Task, error)
}

// Directory resolves the active session and the mentionable user set.
type Directory interface {
	CurrentUser(ctx context.Context) (model.User, error)
	Users(ctx context.Context) ([]model.User, error)
}

// Notifier receives post events after a successful local apply. Delivery
// is fire-and-forget; the send path never waits on it.
type Notifier interface {
	Enqueue(Event)
}

// State is the composition state of one task discussion.
type State int

const (
	StateIdle State = iota
	StateComposing
	StateSending
)

func (s State) String() string {
	switch s {
	case StateComposing:
		return "composing"
	case StateSending:
		return "sending"
	default:
		return "idle"
	}
}

var (
	ErrBusy         = errors.New("a send is already in flight")
	ErrBlankMessage = errors.New("message is blank")
	ErrNoTask       = errors.New("no task selected")
	ErrNoSession    = errors.New("no active user session")
	ErrNotSending   = errors.New("no send in flight")
)

// Controller orchestrates one selected task's discussion: it owns the
// in-memory forest and collapse state, applies sends optimistically, and
// reconciles with the store of record afterwards.
//
// Send is split in two phases so interactive callers can repaint between
// them: Send applies the mutation locally and Persist pushes it out. One
// Persist may be in flight at a time; a second Send while sending is a
// no-op returning ErrBusy.
type Controller struct {
	mu sync.Mutex

	store     TaskStore
	directory Directory
	notifier  Notifier

	now   func() time.Time
	newID func() string
	logf  func(format string, args ...any)

	current model.User
	users   []model.User

	task     model.Task
	forest   Forest
	collapse *CollapseState

	state       State
	draft       string
	replyTarget *model.Message
}

func NewController(store TaskStore, directory Directory, notifier Notifier) *Controller {
	return &Controller{
		store:     store,
		directory: directory,
		notifier:  notifier,
		now:       time.Now,
		newID:     newMessageID,
		logf:      log.Printf,
		forest:    NewForest(),
		collapse:  NewCollapseState(),
	}
}

// newMessageID returns a client-side message id: millisecond timestamp for
// rough ordering plus a uuid fragment for uniqueness. The server replaces
// it with a canonical id on reconciliation.
func newMessageID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// RefreshDirectory fetches the session user and the user list. On failure
// the previous values are kept and the controller runs degraded: mention
// suggestions may be empty and notifications are skipped, but sending
// still works with whatever the tree already knows.
func (c *Controller) RefreshDirectory(ctx context.Context) error {
	me, meErr := c.directory.CurrentUser(ctx)
	users, usersErr := c.directory.Users(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if meErr == nil {
		c.current = me
	}
	if usersErr == nil {
		c.users = users
	}
	return errors.Join(meErr, usersErr)
}

// SetSession seeds the session user without a directory round trip
// (e.g. from the local snapshot cache).
func (c *Controller) SetSession(u model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = u
}

// SetUsers seeds the user list without a directory round trip.
func (c *Controller) SetUsers(users []model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = users
}

// SelectTask binds the controller to a task and resets all per-discussion
// state (forest, collapse set, composition).
func (c *Controller) SelectTask(t model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.task = t
	c.forest = FromMessages(t.Messages)
	c.collapse.Reset()
	c.state = StateIdle
	c.replyTarget = nil
	c.draft = ""
}

// AdoptTask replaces the bound task with a fresher copy of the same task,
// keeping collapse and composition state. Poll loops use this to fold in
// remote edits; the whole task wins, fields are never merged. A different
// task id or an in-flight send leaves the controller untouched.
func (c *Controller) AdoptTask(t model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task.ID != t.ID || c.state == StateSending {
		return
	}
	c.task = t
	c.forest = FromMessages(t.Messages)
}

func (c *Controller) Task() model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task
}

func (c *Controller) Forest() Forest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forest
}

func (c *Controller) Collapse() *CollapseState {
	return c.collapse
}

func (c *Controller) CurrentUser() model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) Users() []model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the composition buffer. Typing moves an idle
// discussion into the composing state; an in-flight send is untouched.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
	if c.state == StateSending {
		return
	}
	if strings.TrimSpace(text) == "" && c.replyTarget == nil {
		c.state = StateIdle
		return
	}
	c.state = StateComposing
}

func (c *Controller) ReplyTarget() *model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replyTarget
}

// StartReply targets messageID for the next send. When the target author
// has a known username and nothing has been typed yet, the draft is
// prefilled with their mention.
func (c *Controller) StartReply(messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.forest.FindByID(messageID)
	if !ok {
		return ParentNotFoundError{ParentID: messageID}
	}
	c.replyTarget = &msg
	if c.state != StateSending {
		c.state = StateComposing
	}
	if strings.TrimSpace(c.draft) != "" {
		return nil
	}
	for _, u := range c.users {
		if u.Name == msg.Sender && u.Username != "" {
			c.draft = "@" + u.Username + " "
			break
		}
	}
	return nil
}

// CancelReply clears the reply target. Typed text is kept; clearing it is
// the caller's explicit choice.
func (c *Controller) CancelReply() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replyTarget = nil
	if c.state != StateSending && strings.TrimSpace(c.draft) == "" {
		c.state = StateIdle
	}
}

// Suggestions scans the draft at cursor for an in-progress mention and
// returns the matching candidates.
func (c *Controller) Suggestions(cursor int) ([]model.User, MentionQuery, bool) {
	c.mu.Lock()
	draft := c.draft
	users := c.users
	c.mu.Unlock()

	q, ok := Scan(draft, cursor)
	if !ok {
		return nil, MentionQuery{}, false
	}
	return FilterCandidates(users, q.Term), q, true
}

// AcceptSuggestion rewrites the draft with the chosen mention and returns
// the new cursor position.
func (c *Controller) AcceptSuggestion(q MentionQuery, username string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var cursor int
	c.draft, cursor = InsertMention(c.draft, q, username)
	return cursor
}

// Send applies a new message to the local tree immediately and clears the
// composition state. The caller must follow up with Persist to push the
// task to the store of record.
//
// A reply whose target vanished from the tree is rejected with
// ParentNotFoundError rather than silently re-homed; composition state is
// kept so nothing typed is lost.
func (c *Controller) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return ErrBlankMessage
	}
	if c.task.ID == "" {
		return ErrNoTask
	}
	if c.current.ID == "" {
		return ErrNoSession
	}
	if c.state == StateSending {
		return ErrBusy
	}

	msg := model.Message{
		ID:        c.newID(),
		Text:      text,
		Sender:    c.current.Name,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}

	target := c.replyTarget
	if target != nil {
		parentID := target.ID
		msg.ParentID = &parentID
		next, err := c.forest.InsertReply(parentID, msg)
		if err != nil {
			return err
		}
		c.forest = next
	} else {
		c.forest = c.forest.InsertRoot(msg)
	}
	c.task.Messages = c.forest.Messages()

	if c.notifier != nil {
		c.notifier.Enqueue(Event{
			Text:        text,
			TaskTitle:   c.task.Title,
			Sender:      c.current,
			Users:       append([]model.User(nil), c.users...),
			ReplyTarget: target,
		})
	}

	c.draft = ""
	c.replyTarget = nil
	c.state = StateSending
	return nil
}

// Persist pushes the whole task to the store and reconciles. On success
// the local tree is replaced wholesale by the store's canonical task, which
// guards against id or ordering drift. On failure the optimistic copy can
// no longer be trusted (server-assigned ids may differ), so instead of an
// in-memory undo the authoritative task list is re-fetched.
//
// Returns nil when the discussion ended up consistent, including the
// recovered-by-refetch path; only a failed recovery surfaces an error.
func (c *Controller) Persist(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateSending {
		c.mu.Unlock()
		return ErrNotSending
	}
	snapshot := c.task
	c.mu.Unlock()

	updated, err := c.store.UpdateTask(ctx, snapshot)

	c.mu.Lock()
	if err == nil {
		c.state = StateIdle
		c.task = updated
		c.forest = FromMessages(updated.Messages)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// The controller stays in the sending state for the whole recovery: a
	// send accepted during the refetch window would be clobbered when the
	// fetched copy is adopted below, so Send must keep returning ErrBusy
	// until the discussion is consistent again.
	c.logf("discussion: update of task %s failed, refetching: %v", snapshot.ID, err)
	tasks, fetchErr := c.store.Tasks(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	if fetchErr != nil {
		return fmt.Errorf("task update failed and refetch failed: %w", errors.Join(err, fetchErr))
	}
	for _, t := range tasks {
		if t.ID == snapshot.ID {
			c.task = t
			c.forest = FromMessages(t.Messages)
			return nil
		}
	}
	// Task gone from the store entirely; keep the local copy visible and
	// let the next poll settle it.
	c.logf("discussion: task %s missing from refetched list", snapshot.ID)
	return nil
}

// SendMessage is Send followed by Persist, for one-shot callers.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	if err := c.Send(text); err != nil {
		return err
	}
	return c.Persist(ctx)
}

// ToggleStatus flips pending/completed optimistically and persists. Unlike
// sends this mutation has a precise inverse, so a persistence failure
// rolls the flip back in place.
//
// The toggle counts as the one in-flight write: while it runs, Send
// returns ErrBusy and AdoptTask skips, so the rollback can never clobber
// a task adopted from a poll mid-flight.
func (c *Controller) ToggleStatus(ctx context.Context) error {
	c.mu.Lock()
	if c.task.ID == "" {
		c.mu.Unlock()
		return ErrNoTask
	}
	if c.state == StateSending {
		c.mu.Unlock()
		return ErrBusy
	}
	restore := c.state
	c.state = StateSending
	prev := c.task.Status
	c.task.Status = prev.Toggled()
	snapshot := c.task
	c.mu.Unlock()

	updated, err := c.store.UpdateTask(ctx, snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = restore
	if err != nil {
		c.task.Status = prev
		return fmt.Errorf("toggle status: %w", err)
	}
	c.task = updated
	c.forest = FromMessages(updated.Messages)
	return nil
}

// UpsertTask applies last-writer-wins per task id to a task list: the
// whole element is replaced, never field-merged, so stale nested trees can
// not be resurrected. Unknown ids are appended.
func UpsertTask(tasks []model.Task, t model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].ID == t.ID {
			out[i] = t
			return out
		}
	}
	return append(out, t)
}
