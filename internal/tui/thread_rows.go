package tui

import (
	"fmt"
	"strings"

	"huddle-cli/internal/discussion"
	"huddle-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

var (
	senderStyle    = lipgloss.NewStyle().Bold(true)
	mentionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5f9fb0")).Bold(true)
	timestampStyle = lipgloss.NewStyle().Faint(true)
	badgeStyle     = lipgloss.NewStyle().Faint(true)
	orphanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f39c12"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c757d")).Bold(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d16d7a")).Bold(true)
)

type threadRow struct {
	msg         model.Message
	depth       int
	hasChildren bool
	collapsed   bool
	hiddenCount int
	orphan      bool
}

// buildThreadRows flattens the forest into display order: each message
// followed by its replies, depth-first, skipping subtrees under a collapsed
// node. Depth is clamped so pathological nesting still fits on screen.
func buildThreadRows(f discussion.Forest, collapse *discussion.CollapseState) []threadRow {
	var out []threadRow
	var walk func(msg model.Message, depth int)
	walk = func(msg model.Message, depth int) {
		if depth > 8 {
			depth = 8
		}
		row := threadRow{
			msg:         msg,
			depth:       depth,
			hasChildren: len(msg.Replies) > 0,
			collapsed:   collapse.IsCollapsed(msg.ID),
			orphan:      f.Orphaned(msg.ID),
		}
		if row.collapsed {
			row.hiddenCount = f.CountDescendants(msg.ID)
		}
		out = append(out, row)
		if row.collapsed {
			return
		}
		for _, kid := range msg.Replies {
			walk(kid, depth+1)
		}
	}
	for _, msg := range f.TopLevel() {
		walk(msg, 0)
	}
	return out
}

type threadRowItem struct {
	row threadRow
}

func (i threadRowItem) FilterValue() string { return i.row.msg.Text }

func (i threadRowItem) Title() string {
	prefix := strings.Repeat("  ", i.row.depth)
	twisty := " "
	if i.row.hasChildren {
		twisty = "▾"
		if i.row.collapsed {
			twisty = "▸"
		}
	}
	sender := senderStyle.Render(i.row.msg.Sender)
	if i.row.orphan {
		sender += " " + orphanStyle.Render("(detached)")
	}
	text := renderMentions(singleLine(i.row.msg.Text))

	badge := ""
	if i.row.collapsed && i.row.hiddenCount > 0 {
		noun := "replies"
		if i.row.hiddenCount == 1 {
			noun = "reply"
		}
		badge = "  " + badgeStyle.Render(fmt.Sprintf("… %d %s hidden", i.row.hiddenCount, noun))
	}

	ts := shortTimestamp(i.row.msg.Timestamp)
	if ts != "" {
		ts = "  " + timestampStyle.Render(ts)
	}
	return fmt.Sprintf("%s%s %s%s  %s%s", prefix, twisty, sender, ts, text, badge)
}

func (i threadRowItem) Description() string { return "" }

// renderMentions styles the @mention tokens in a message body.
func renderMentions(text string) string {
	var b strings.Builder
	for _, seg := range discussion.SplitMentions(text) {
		if seg.Mention {
			b.WriteString(mentionStyle.Render(seg.Text))
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// shortTimestamp trims an RFC 3339 stamp down to what fits on a row.
// Anything unparseable is shown as-is, truncated.
func shortTimestamp(ts string) string {
	if len(ts) >= 16 && ts[4] == '-' {
		return ts[5:16]
	}
	if len(ts) > 16 {
		return ts[:16]
	}
	return ts
}

type taskItem struct {
	task     model.Task
	messages int
}

func (i taskItem) FilterValue() string { return i.task.Title }

func (i taskItem) Title() string {
	box := pendingStyle.Render("[ ]")
	if i.task.Status == model.TaskStatusCompleted {
		box = doneStyle.Render("[x]")
	}
	return box + " " + i.task.Title
}

func (i taskItem) Description() string {
	if i.messages == 1 {
		return "1 message"
	}
	return fmt.Sprintf("%d messages", i.messages)
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	// We render our own header and footer, so keep list chrome minimal.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	// ESC means "back" here, not quit.
	l.KeyMap.Quit.SetKeys("ctrl+c")
	return l
}
