package tui

import (
	"context"
	"time"

	"huddle-cli/internal/api"
	"huddle-cli/internal/cache"
	"huddle-cli/internal/discussion"
	"huddle-cli/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive discussion UI. It blocks until the user quits,
// then drains any queued notifications before returning.
func Run(client *api.Client, sess session.Session, cs cache.Store) error {
	mailer := api.NewMailClient(sess.Mail.ServiceID, sess.Mail.TemplateID, sess.Mail.PublicKey)
	dispatcher := discussion.NewDispatcher(mailer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	ctrl := discussion.NewController(client, client, dispatcher)
	ctrl.SetSession(sess.User)

	m := newAppModel(client, sess, cs, ctrl)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	dispatcher.Drain(drainCtx)
	return err
}
