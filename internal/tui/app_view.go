package tui

import (
	"fmt"
	"strings"

	"huddle-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	footerStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d16d7a"))
	composerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	suggestStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	replyStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
)

func (m appModel) View() string {
	header := headerStyle.Render(fmt.Sprintf("Huddle  %s  %s",
		emptyAsDash(m.ctrl.CurrentUser().Name), emptyAsDash(m.sess.ServerURL)))

	var body, footer string
	switch {
	case m.modal == modalNewTask:
		body = m.viewNewTaskModal()
		footer = footerStyle.Render("enter: create  esc: cancel")
	case m.view == viewTasks:
		body = m.tasksList.View()
		footer = footerStyle.Render("enter: open  n: new task  t: toggle status  /: filter  r: reload  q: quit")
	default:
		body = m.viewDiscussion()
		if m.focus == focusComposer {
			footer = footerStyle.Render("ctrl+s: send  esc: cancel reply / back to thread  tab: accept mention")
		} else {
			footer = footerStyle.Render("enter/R: reply  c: collapse  i: compose  t: toggle status  esc: back")
		}
	}

	lines := []string{header, body, footer}
	if m.status != "" {
		lines = []string{header, body, statusStyle.Render(m.status), footer}
	}
	return strings.Join(lines, "\n\n")
}

func (m appModel) viewDiscussion() string {
	task := m.ctrl.Task()
	box := "[ ]"
	if task.Status == model.TaskStatusCompleted {
		box = "[x]"
	}
	title := headerStyle.Render(fmt.Sprintf("%s %s", box, task.Title))

	thread := m.threadList.View()
	if len(m.threadList.Items()) == 0 {
		thread = footerStyle.Render("No messages yet.")
	}

	var parts []string
	parts = append(parts, title, thread)

	if target := m.ctrl.ReplyTarget(); target != nil {
		parts = append(parts, replyStyle.Render(
			fmt.Sprintf("Replying to %s: %s", target.Sender, truncate(singleLine(target.Text), 60))))
	}
	if m.sending {
		parts = append(parts, m.spin.View()+footerStyle.Render("sending"))
	}

	parts = append(parts, composerStyle.Render(m.composer.View()))

	if m.suggesting && m.focus == focusComposer {
		parts = append(parts, m.viewSuggestions())
	}

	return strings.Join(parts, "\n")
}

func (m appModel) viewSuggestions() string {
	var rows []string
	for i, u := range m.suggestions {
		label := "@" + u.Username
		if u.Name != "" && u.Name != u.Username {
			label += "  " + u.Name
		}
		if i == m.suggestIdx {
			label = selectedStyle.Render(label)
		}
		rows = append(rows, label)
	}
	return suggestStyle.Render(strings.Join(rows, "\n"))
}

func (m appModel) viewNewTaskModal() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("New task"),
		"",
		m.titleInput.View(),
	)
}

func (m *appModel) resize() {
	h := m.height - 6
	if h < 8 {
		h = 8
	}
	w := m.width
	if w < 40 {
		w = 40
	}
	m.tasksList.SetSize(w, h)

	// The discussion view stacks thread, composer and chrome.
	threadH := h - 8
	if threadH < 5 {
		threadH = 5
	}
	m.threadList.SetSize(w, threadH)
	m.composer.SetWidth(w - 4)
}

func emptyAsDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
