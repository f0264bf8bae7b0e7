package discussion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"huddle-cli/internal/model"
)

type fakeStore struct {
	tasks     []model.Task
	tasksErr  error
	updateErr error
	updateFn  func(model.Task) model.Task

	// onTasks/onUpdate run at the start of the call, for interleaving
	// another controller operation mid-flight.
	onTasks  func()
	onUpdate func()

	updates []model.Task
	fetches int
}

func (s *fakeStore) Tasks(context.Context) ([]model.Task, error) {
	if s.onTasks != nil {
		s.onTasks()
	}
	s.fetches++
	if s.tasksErr != nil {
		return nil, s.tasksErr
	}
	return s.tasks, nil
}

func (s *fakeStore) CreateTask(_ context.Context, title string, status model.TaskStatus) (model.Task, error) {
	t := model.Task{ID: fmt.Sprintf("task-%d", len(s.tasks)+1), Title: title, Status: status}
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *fakeStore) UpdateTask(_ context.Context, task model.Task) (model.Task, error) {
	if s.onUpdate != nil {
		s.onUpdate()
	}
	s.updates = append(s.updates, task)
	if s.updateErr != nil {
		return model.Task{}, s.updateErr
	}
	if s.updateFn != nil {
		task = s.updateFn(task)
	}
	return task, nil
}

type fakeDirectory struct {
	me       model.User
	users    []model.User
	meErr    error
	usersErr error
}

func (d *fakeDirectory) CurrentUser(context.Context) (model.User, error) {
	return d.me, d.meErr
}

func (d *fakeDirectory) Users(context.Context) ([]model.User, error) {
	if d.usersErr != nil {
		return nil, d.usersErr
	}
	return d.users, nil
}

type fakeNotifier struct {
	events []Event
}

func (n *fakeNotifier) Enqueue(evt Event) { n.events = append(n.events, evt) }

func newTestController(store *fakeStore, notifier *fakeNotifier) *Controller {
	var n Notifier
	if notifier != nil {
		n = notifier
	}
	c := NewController(store, &fakeDirectory{}, n)
	c.logf = func(string, ...any) {}
	c.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	seq := 0
	c.newID = func() string {
		seq++
		return fmt.Sprintf("local-%d", seq)
	}
	c.SetSession(alice)
	c.SetUsers([]model.User{alice, bob, carol})
	return c
}

func TestSend_TopLevelMessageNotifiesMentions(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	c := newTestController(store, notifier)
	c.SelectTask(model.Task{ID: "t1", Title: "Deploy", Status: model.TaskStatusPending})

	if err := c.Send("hello @bob"); err != nil {
		t.Fatalf("send: %v", err)
	}

	top := c.Forest().TopLevel()
	if len(top) != 1 {
		t.Fatalf("got %d roots, want 1", len(top))
	}
	if top[0].ParentID != nil {
		t.Fatalf("top-level message must have no parent")
	}
	if top[0].Sender != "Alice" {
		t.Fatalf("sender = %q", top[0].Sender)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("got %d events, want 1", len(notifier.events))
	}
	evt := notifier.events[0]
	recipients := ResolveRecipients(evt.Users, evt.Sender, ExtractMentions(evt.Text), evt.ReplyTarget)
	if len(recipients) != 1 || recipients[0].ID != bob.ID {
		t.Fatalf("recipients = %v, want just bob", recipients)
	}

	if c.State() != StateSending {
		t.Fatalf("state = %v, want sending", c.State())
	}
	if err := c.Persist(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle after persist", c.State())
	}
	if len(store.updates) != 1 || len(store.updates[0].Messages) != 1 {
		t.Fatalf("whole task not pushed: %+v", store.updates)
	}
}

func TestSend_Guards(t *testing.T) {
	c := newTestController(&fakeStore{}, nil)

	if err := c.Send("   "); !errors.Is(err, ErrBlankMessage) {
		t.Fatalf("blank text: got %v", err)
	}
	if err := c.Send("hi"); !errors.Is(err, ErrNoTask) {
		t.Fatalf("no task: got %v", err)
	}

	c.SelectTask(model.Task{ID: "t1", Title: "T"})
	c.SetSession(model.User{})
	if err := c.Send("hi"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("no session: got %v", err)
	}

	c.SetSession(alice)
	if err := c.Send("hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Send("again"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second send while sending: got %v", err)
	}
}

func TestReplyFlow_PrefillAndPlacement(t *testing.T) {
	store := &fakeStore{}
	c := newTestController(store, &fakeNotifier{})
	c.SelectTask(model.Task{ID: "t1", Title: "T", Messages: []model.Message{
		{ID: "x", Text: "Hi", Sender: "Carol"},
	}})

	if err := c.StartReply("x"); err != nil {
		t.Fatalf("start reply: %v", err)
	}
	if got := c.Draft(); got != "@carol1 " {
		t.Fatalf("prefill = %q, want %q", got, "@carol1 ")
	}

	before := c.Forest().CountDescendants("x")
	if err := c.Send("thanks"); err != nil {
		t.Fatalf("send: %v", err)
	}

	f := c.Forest()
	if got := f.CountDescendants("x"); got != before+1 {
		t.Fatalf("descendants = %d, want %d", got, before+1)
	}
	x, _ := f.FindByID("x")
	last := x.Replies[len(x.Replies)-1]
	if last.Text != "thanks" {
		t.Fatalf("new reply not last: %+v", x.Replies)
	}
	if last.ParentID == nil || *last.ParentID != "x" {
		t.Fatalf("parent id not set: %+v", last)
	}
	if c.ReplyTarget() != nil {
		t.Fatalf("reply target should clear after send")
	}
}

func TestStartReply_KeepsTypedDraft(t *testing.T) {
	c := newTestController(&fakeStore{}, nil)
	c.SelectTask(model.Task{ID: "t1", Messages: []model.Message{{ID: "x", Sender: "Carol"}}})
	c.SetDraft("already typing")
	if err := c.StartReply("x"); err != nil {
		t.Fatalf("start reply: %v", err)
	}
	if c.Draft() != "already typing" {
		t.Fatalf("draft clobbered: %q", c.Draft())
	}
}

func TestStartReply_UnknownMessage(t *testing.T) {
	c := newTestController(&fakeStore{}, nil)
	c.SelectTask(model.Task{ID: "t1"})
	var pnf ParentNotFoundError
	if err := c.StartReply("ghost"); !errors.As(err, &pnf) {
		t.Fatalf("got %v, want ParentNotFoundError", err)
	}
}

func TestCancelReply_KeepsText(t *testing.T) {
	c := newTestController(&fakeStore{}, nil)
	c.SelectTask(model.Task{ID: "t1", Messages: []model.Message{{ID: "x", Sender: "Carol"}}})
	_ = c.StartReply("x")
	c.SetDraft("half a thought")
	c.CancelReply()
	if c.ReplyTarget() != nil {
		t.Fatalf("target should clear")
	}
	if c.Draft() != "half a thought" {
		t.Fatalf("text discarded: %q", c.Draft())
	}
}

func TestPersist_ReconcilesWithCanonicalTask(t *testing.T) {
	store := &fakeStore{updateFn: func(task model.Task) model.Task {
		// Server rewrites client ids.
		for i := range task.Messages {
			task.Messages[i].ID = "srv-" + task.Messages[i].ID
		}
		return task
	}}
	c := newTestController(store, nil)
	c.SelectTask(model.Task{ID: "t1", Title: "T"})

	if err := c.Send("hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Persist(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}

	top := c.Forest().TopLevel()
	if len(top) != 1 || top[0].ID != "srv-local-1" {
		t.Fatalf("local tree not replaced by canonical task: %+v", top)
	}
}

func TestPersist_FailureRefetchesStoreOfRecord(t *testing.T) {
	authoritative := model.Task{ID: "t1", Title: "T", Messages: []model.Message{
		{ID: "srv-1", Text: "server truth"},
	}}
	store := &fakeStore{
		updateErr: errors.New("boom"),
		tasks:     []model.Task{authoritative},
	}
	c := newTestController(store, nil)
	c.SelectTask(model.Task{ID: "t1", Title: "T"})

	if err := c.Send("optimistic"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Persist(context.Background()); err != nil {
		t.Fatalf("persist should recover via refetch: %v", err)
	}
	if store.fetches != 1 {
		t.Fatalf("expected one refetch, got %d", store.fetches)
	}
	top := c.Forest().TopLevel()
	if len(top) != 1 || top[0].ID != "srv-1" {
		t.Fatalf("local tree should be replaced by refetched truth: %+v", top)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle", c.State())
	}
}

func TestPersist_FailureAndRefetchFailure(t *testing.T) {
	store := &fakeStore{
		updateErr: errors.New("boom"),
		tasksErr:  errors.New("network down"),
	}
	c := newTestController(store, nil)
	c.SelectTask(model.Task{ID: "t1", Title: "T"})

	_ = c.Send("optimistic")
	if err := c.Persist(context.Background()); err == nil {
		t.Fatalf("unrecovered failure should surface")
	}
}

func TestPersist_WithoutSend(t *testing.T) {
	c := newTestController(&fakeStore{}, nil)
	if err := c.Persist(context.Background()); !errors.Is(err, ErrNotSending) {
		t.Fatalf("got %v, want ErrNotSending", err)
	}
}

func TestToggleStatus_RollbackOnFailure(t *testing.T) {
	store := &fakeStore{updateErr: errors.New("boom")}
	c := newTestController(store, nil)
	c.SelectTask(model.Task{ID: "t1", Title: "T", Status: model.TaskStatusPending})

	if err := c.ToggleStatus(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	got := c.Task()
	if got.Status != model.TaskStatusPending {
		t.Fatalf("status = %q, want rollback to pending", got.Status)
	}
	if got.Title != "T" || got.ID != "t1" {
		t.Fatalf("other fields changed: %+v", got)
	}
}

func TestToggleStatus_Success(t *testing.T) {
	store := &fakeStore{}
	c := newTestController(store, nil)
	c.SelectTask(model.Task{ID: "t1", Status: model.TaskStatusPending})

	if err := c.ToggleStatus(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if c.Task().Status != model.TaskStatusCompleted {
		t.Fatalf("status = %q", c.Task().Status)
	}
	if len(store.updates) != 1 || store.updates[0].Status != model.TaskStatusCompleted {
		t.Fatalf("whole task not pushed: %+v", store.updates)
	}
}

func TestSuggestions_WiredThroughDraft(t *testing.T) {
	c := newTestController(&fakeStore{}, nil)
	c.SetDraft("ping @b")

	candidates, q, ok := c.Suggestions(7)
	if !ok {
		t.Fatalf("expected active query")
	}
	if len(candidates) != 1 || candidates[0].Username != "bob" {
		t.Fatalf("candidates = %v", candidates)
	}
	cursor := c.AcceptSuggestion(q, "bob")
	if c.Draft() != "ping @bob " {
		t.Fatalf("draft = %q", c.Draft())
	}
	if cursor != 10 {
		t.Fatalf("cursor = %d, want 10", cursor)
	}
}

func TestRefreshDirectory_DegradedKeepsPreviousValues(t *testing.T) {
	c := newTestController(&fakeStore{}, nil)
	c.directory = &fakeDirectory{meErr: errors.New("401"), usersErr: errors.New("503")}

	if err := c.RefreshDirectory(context.Background()); err == nil {
		t.Fatalf("expected join of both errors")
	}
	if c.CurrentUser().ID != alice.ID {
		t.Fatalf("session lost on failed refresh")
	}
	if len(c.Users()) != 3 {
		t.Fatalf("user list lost on failed refresh")
	}
}

func TestUpsertTask_LastWriterWins(t *testing.T) {
	list := []model.Task{
		{ID: "a", Title: "old", Messages: []model.Message{{ID: "m1"}}},
		{ID: "b", Title: "other"},
	}
	fresh := model.Task{ID: "a", Title: "new"}
	got := UpsertTask(list, fresh)
	if got[0].Title != "new" || len(got[0].Messages) != 0 {
		t.Fatalf("stale fields survived: %+v", got[0])
	}
	if list[0].Title != "old" {
		t.Fatalf("input mutated")
	}
	appended := UpsertTask(list, model.Task{ID: "c"})
	if len(appended) != 3 {
		t.Fatalf("unknown id should append")
	}
}

func TestAdoptTask_KeepsCompositionAndCollapse(t *testing.T) {
	c := newTestController(&fakeStore{}, nil)
	c.SelectTask(model.Task{ID: "t1", Title: "Deploy", Messages: []model.Message{
		{ID: "m1", Text: "root", Sender: "Bob"},
	}})
	c.Collapse().Toggle("m1")
	c.SetDraft("half a thought")

	fresh := model.Task{ID: "t1", Title: "Deploy", Messages: []model.Message{
		{ID: "m1", Text: "root", Sender: "Bob"},
		{ID: "m2", Text: "remote edit", Sender: "Carol"},
	}}
	c.AdoptTask(fresh)

	if c.Forest().Size() != 2 {
		t.Fatalf("fresh tree not adopted: size = %d", c.Forest().Size())
	}
	if c.Draft() != "half a thought" {
		t.Fatalf("draft lost on adopt: %q", c.Draft())
	}
	if !c.Collapse().IsCollapsed("m1") {
		t.Fatalf("collapse state lost on adopt")
	}

	// A different task id is ignored outright.
	c.AdoptTask(model.Task{ID: "other", Messages: []model.Message{{ID: "x"}}})
	if c.Task().ID != "t1" {
		t.Fatalf("adopted a foreign task")
	}

	// An in-flight send wins over the poll.
	if err := c.Send("racing message"); err != nil {
		t.Fatalf("send: %v", err)
	}
	c.AdoptTask(fresh)
	if c.Forest().Size() != 3 {
		t.Fatalf("poll clobbered the optimistic tree: size = %d", c.Forest().Size())
	}
}

func TestPersist_RecoveryWindowRejectsSend(t *testing.T) {
	store := &fakeStore{
		updateErr: errors.New("boom"),
		tasks: []model.Task{{ID: "t1", Title: "Deploy", Messages: []model.Message{
			{ID: "srv-1", Text: "canonical", Sender: "Bob"},
		}}},
	}
	c := newTestController(store, nil)
	c.SelectTask(model.Task{ID: "t1", Title: "Deploy"})

	// A send that lands while the recovery fetch is in flight must be
	// rejected, not accepted and then clobbered by the adoption.
	var interleaved error
	store.onTasks = func() {
		interleaved = c.Send("typed during recovery")
	}

	if err := c.Send("first message"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Persist(context.Background()); err != nil {
		t.Fatalf("persist should recover via refetch: %v", err)
	}
	if store.fetches != 1 {
		t.Fatalf("recovery fetch never ran")
	}
	if !errors.Is(interleaved, ErrBusy) {
		t.Fatalf("send during recovery = %v, want ErrBusy", interleaved)
	}

	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle after recovery", c.State())
	}
	if c.Forest().Size() != 1 {
		t.Fatalf("forest size = %d, want the 1 canonical message", c.Forest().Size())
	}
	if _, ok := c.Forest().FindByID("srv-1"); !ok {
		t.Fatalf("canonical task not adopted")
	}

	// The discussion is consistent again: a fresh send goes through.
	if err := c.Send("after recovery"); err != nil {
		t.Fatalf("send after recovery: %v", err)
	}
}

func TestToggleStatus_InFlightBlocksPollAndSend(t *testing.T) {
	store := &fakeStore{updateErr: errors.New("boom")}
	c := newTestController(store, nil)
	c.SelectTask(model.Task{ID: "t1", Title: "Deploy", Status: model.TaskStatusPending})
	c.SetDraft("half typed")

	remote := model.Task{ID: "t1", Title: "Deploy", Status: model.TaskStatusCompleted,
		Messages: []model.Message{{ID: "m9", Text: "remote edit", Sender: "Bob"}}}
	store.onUpdate = func() {
		c.AdoptTask(remote)
		if err := c.Send("mid-toggle"); !errors.Is(err, ErrBusy) {
			t.Errorf("send mid-toggle = %v, want ErrBusy", err)
		}
	}

	if err := c.ToggleStatus(context.Background()); err == nil {
		t.Fatalf("expected toggle failure")
	}

	// The poll's adoption was skipped, so the rollback restored exactly
	// the pre-toggle task.
	if c.Task().Status != model.TaskStatusPending {
		t.Fatalf("status = %s, want pending after rollback", c.Task().Status)
	}
	if c.Forest().Size() != 0 {
		t.Fatalf("mid-flight poll adopted a task: %d messages", c.Forest().Size())
	}
	if c.State() != StateComposing {
		t.Fatalf("state = %v, want composing restored", c.State())
	}
	if c.Draft() != "half typed" {
		t.Fatalf("draft lost: %q", c.Draft())
	}
}
