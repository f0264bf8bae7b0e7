package tui

import (
	"strings"

	"huddle-cli/internal/discussion"
	"huddle-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case reloadTickMsg:
		return m, tea.Batch(m.loadTasks(), tickReload())

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tasksLoadedMsg:
		if msg.err != nil {
			m.status = "offline: " + msg.err.Error()
			return m, nil
		}
		m.status = ""
		m.adoptTasks(msg.tasks)
		return m, nil

	case directoryLoadedMsg:
		if msg.err != nil {
			// Degraded: suggestions and notifications may be stale, but
			// the cached directory still lets everything else work.
			m.status = "directory refresh failed"
		}
		return m, nil

	case taskCreatedMsg:
		if msg.err != nil {
			m.status = "create failed: " + msg.err.Error()
			return m, nil
		}
		m.tasks = discussion.UpsertTask(m.tasks, msg.task)
		m.refreshTasks()
		m.saveSnapshot()
		return m, nil

	case sendDoneMsg:
		m.sending = false
		if msg.err != nil {
			m.status = "send failed: " + msg.err.Error()
		}
		// Success or recovered-by-refetch: the controller holds the
		// canonical tree either way.
		m.tasks = discussion.UpsertTask(m.tasks, m.ctrl.Task())
		m.refreshTasks()
		m.refreshThread()
		m.saveSnapshot()
		return m, nil

	case toggleDoneMsg:
		if msg.err != nil {
			m.status = "toggle failed: " + msg.err.Error()
		}
		m.tasks = discussion.UpsertTask(m.tasks, m.ctrl.Task())
		m.refreshTasks()
		return m, nil

	case tea.KeyMsg:
		if m.modal == modalNewTask {
			return m.updateNewTaskModal(msg)
		}
		switch m.view {
		case viewTasks:
			return m.updateTasks(msg)
		case viewDiscussion:
			return m.updateDiscussion(msg)
		}
	}

	return m, nil
}

// adoptTasks replaces the task list with the remote snapshot. When a
// discussion is open its task is reconciled through the controller so an
// in-flight or composed draft is never clobbered; the controller's copy
// then wins in the list.
func (m *appModel) adoptTasks(tasks []model.Task) {
	m.tasks = tasks
	if m.view == viewDiscussion {
		cur := m.ctrl.Task()
		for _, t := range tasks {
			if t.ID == cur.ID {
				m.ctrl.AdoptTask(t)
				break
			}
		}
		m.tasks = discussion.UpsertTask(m.tasks, m.ctrl.Task())
		m.refreshThread()
	}
	m.refreshTasks()
	m.saveSnapshot()
}

func (m appModel) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.tasksList.FilterState() != list.Filtering {
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if it, ok := m.tasksList.SelectedItem().(taskItem); ok {
				m.openDiscussion(it.task)
				return m, nil
			}
		case "n":
			m.modal = modalNewTask
			m.titleInput.SetValue("")
			m.titleInput.Focus()
			return m, nil
		case "t":
			if it, ok := m.tasksList.SelectedItem().(taskItem); ok {
				m.ctrl.SelectTask(it.task)
				return m, m.toggleStatus()
			}
		case "r":
			return m, m.loadTasks()
		}
	}
	var cmd tea.Cmd
	m.tasksList, cmd = m.tasksList.Update(msg)
	return m, cmd
}

func (m *appModel) openDiscussion(task model.Task) {
	m.ctrl.SelectTask(task)
	m.view = viewDiscussion
	m.focus = focusThread
	m.composer.Reset()
	m.composer.Blur()
	m.suggesting = false
	m.restoreDraft(task.ID)
	m.refreshThread()
}

func (m appModel) updateDiscussion(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focus == focusComposer {
		return m.updateComposer(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc", "backspace":
		m.saveDraft()
		m.view = viewTasks
		return m, nil
	case "c":
		if it, ok := m.threadList.SelectedItem().(threadRowItem); ok {
			m.ctrl.Collapse().Toggle(it.row.msg.ID)
			m.refreshThread()
		}
		return m, nil
	case "R", "enter":
		if it, ok := m.threadList.SelectedItem().(threadRowItem); ok {
			if err := m.ctrl.StartReply(it.row.msg.ID); err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.composer.SetValue(m.ctrl.Draft())
			m.focus = focusComposer
			m.composer.Focus()
		}
		return m, nil
	case "i":
		m.focus = focusComposer
		m.composer.Focus()
		return m, nil
	case "t":
		return m, m.toggleStatus()
	case "r":
		return m, m.loadTasks()
	}

	var cmd tea.Cmd
	m.threadList, cmd = m.threadList.Update(msg)
	return m, cmd
}

func (m appModel) updateComposer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.suggesting {
		switch msg.String() {
		case "up", "ctrl+p":
			if m.suggestIdx > 0 {
				m.suggestIdx--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.suggestIdx < len(m.suggestions)-1 {
				m.suggestIdx++
			}
			return m, nil
		case "tab", "enter":
			m.acceptSuggestion()
			return m, nil
		case "esc":
			m.suggesting = false
			m.suggestions = nil
			return m, nil
		}
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.ctrl.ReplyTarget() != nil {
			m.ctrl.CancelReply()
			return m, nil
		}
		m.composer.Blur()
		m.focus = focusThread
		return m, nil
	case "ctrl+s":
		return m.submit()
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	m.refreshSuggestions()
	return m, cmd
}

func (m appModel) submit() (tea.Model, tea.Cmd) {
	text := m.composer.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if err := m.ctrl.Send(text); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.sending = true
	m.status = ""
	m.composer.Reset()
	m.suggesting = false
	m.refreshThread()
	m.saveDraft() // clears the stored draft
	return m, tea.Batch(m.persistSend(), m.spin.Tick)
}

func (m appModel) updateNewTaskModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		m.titleInput.Blur()
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.titleInput.Value())
		m.modal = modalNone
		m.titleInput.Blur()
		if title == "" {
			return m, nil
		}
		return m, m.createTask(title)
	}
	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}
