package tui

import (
	"context"
	"time"

	"huddle-cli/internal/api"
	"huddle-cli/internal/cache"
	"huddle-cli/internal/discussion"
	"huddle-cli/internal/model"
	"huddle-cli/internal/session"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type view int

const (
	viewTasks view = iota
	viewDiscussion
)

type focus int

const (
	focusThread focus = iota
	focusComposer
)

type modal int

const (
	modalNone modal = iota
	modalNewTask
)

const reloadInterval = 5 * time.Second

type reloadTickMsg struct{}

type tasksLoadedMsg struct {
	tasks []model.Task
	err   error
}

type directoryLoadedMsg struct{ err error }

type taskCreatedMsg struct {
	task model.Task
	err  error
}

type sendDoneMsg struct{ err error }

type toggleDoneMsg struct{ err error }

type appModel struct {
	client *api.Client
	sess   session.Session
	cs     cache.Store
	ctrl   *discussion.Controller

	width  int
	height int

	view  view
	focus focus
	modal modal

	tasks      []model.Task
	tasksList  list.Model
	threadList list.Model

	composer   textarea.Model
	titleInput textinput.Model

	// Mention autocomplete over the composer.
	suggesting  bool
	suggestions []model.User
	suggestIdx  int
	suggestQ    discussion.MentionQuery

	sending bool
	spin    spinner.Model
	status  string
}

func newAppModel(client *api.Client, sess session.Session, cs cache.Store, ctrl *discussion.Controller) appModel {
	m := appModel{
		client: client,
		sess:   sess,
		cs:     cs,
		ctrl:   ctrl,
		view:   viewTasks,
	}

	m.tasksList = newList("Tasks", []list.Item{})
	m.threadList = newList("Discussion", []list.Item{})
	// Filtering steals plain keystrokes we use for collapse/reply.
	m.threadList.SetFilteringEnabled(false)

	m.composer = textarea.New()
	m.composer.Placeholder = "Write a message… (@ to mention)"
	m.composer.CharLimit = 0
	m.composer.SetHeight(3)
	m.composer.ShowLineNumbers = false

	m.titleInput = textinput.New()
	m.titleInput.Placeholder = "Task title"
	m.titleInput.CharLimit = 200
	m.titleInput.Width = 48

	m.spin = spinner.New(spinner.WithSpinner(spinner.Dot))

	// Seed from the local snapshot so something renders before the first
	// fetch lands; the remote list replaces it wholesale.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if tasks, err := cs.LoadTasks(ctx); err == nil && len(tasks) > 0 {
		m.tasks = tasks
		m.refreshTasks()
	}
	if users, err := cs.LoadUsers(ctx); err == nil && len(users) > 0 {
		ctrl.SetUsers(users)
	}

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.loadTasks(), m.loadDirectory(), tickReload())
}

func tickReload() tea.Cmd {
	return tea.Tick(reloadInterval, func(time.Time) tea.Msg { return reloadTickMsg{} })
}

func (m appModel) loadTasks() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		tasks, err := client.Tasks(ctx)
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

func (m appModel) loadDirectory() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		return directoryLoadedMsg{err: ctrl.RefreshDirectory(ctx)}
	}
}

func (m appModel) createTask(title string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		task, err := client.CreateTask(ctx, title, model.TaskStatusPending)
		return taskCreatedMsg{task: task, err: err}
	}
}

func (m appModel) persistSend() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		return sendDoneMsg{err: ctrl.Persist(ctx)}
	}
}

func (m appModel) toggleStatus() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		return toggleDoneMsg{err: ctrl.ToggleStatus(ctx)}
	}
}

// saveSnapshot caches the task list for the next cold start. Best effort.
func (m appModel) saveSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.cs.SaveTasks(ctx, m.tasks)
}

func (m *appModel) saveDraft() {
	task := m.ctrl.Task()
	if task.ID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.cs.SaveDraft(ctx, task.ID, m.composer.Value())
}

func (m *appModel) restoreDraft(taskID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	body, err := m.cs.LoadDraft(ctx, taskID)
	if err != nil || body == "" {
		return
	}
	m.composer.SetValue(body)
	m.ctrl.SetDraft(body)
}

func (m *appModel) refreshTasks() {
	curID := ""
	if it, ok := m.tasksList.SelectedItem().(taskItem); ok {
		curID = it.task.ID
	}
	items := make([]list.Item, 0, len(m.tasks))
	for _, t := range m.tasks {
		items = append(items, taskItem{task: t, messages: countMessages(t.Messages)})
	}
	m.tasksList.SetItems(items)
	if curID != "" {
		for i, it := range items {
			if it.(taskItem).task.ID == curID {
				m.tasksList.Select(i)
				break
			}
		}
	}
}

func (m *appModel) refreshThread() {
	curID := ""
	if it, ok := m.threadList.SelectedItem().(threadRowItem); ok {
		curID = it.row.msg.ID
	}
	rows := buildThreadRows(m.ctrl.Forest(), m.ctrl.Collapse())
	items := make([]list.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, threadRowItem{row: r})
	}
	m.threadList.SetItems(items)
	if curID != "" {
		for i, it := range items {
			if it.(threadRowItem).row.msg.ID == curID {
				m.threadList.Select(i)
				break
			}
		}
	}
}

// refreshSuggestions re-scans the composer for an in-progress mention.
// The scan anchors to the end of the buffer; that is where composition
// happens in practice, and it keeps the cursor math independent of the
// textarea's soft wrapping.
func (m *appModel) refreshSuggestions() {
	m.ctrl.SetDraft(m.composer.Value())
	candidates, q, ok := m.ctrl.Suggestions(len(m.composer.Value()))
	if !ok || len(candidates) == 0 {
		m.suggesting = false
		m.suggestions = nil
		return
	}
	if len(candidates) > 5 {
		candidates = candidates[:5]
	}
	m.suggesting = true
	m.suggestions = candidates
	m.suggestQ = q
	if m.suggestIdx >= len(candidates) {
		m.suggestIdx = 0
	}
}

func (m *appModel) acceptSuggestion() {
	if !m.suggesting || len(m.suggestions) == 0 {
		return
	}
	m.ctrl.AcceptSuggestion(m.suggestQ, m.suggestions[m.suggestIdx].Username)
	m.composer.SetValue(m.ctrl.Draft())
	m.composer.CursorEnd()
	m.suggesting = false
	m.suggestions = nil
	m.suggestIdx = 0
}

func countMessages(msgs []model.Message) int {
	n := 0
	for _, msg := range msgs {
		n += 1 + countMessages(msg.Replies)
	}
	return n
}
