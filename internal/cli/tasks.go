package cli

import (
	"context"

	"huddle-cli/internal/api"
	"huddle-cli/internal/discussion"
	"huddle-cli/internal/model"
	"huddle-cli/internal/session"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksToggleCmd(app))
	cmd.AddCommand(newTasksSendCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks you own or are mentioned in",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := client.Tasks(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if cs, cerr := cacheStore(); cerr == nil {
				_ = cs.SaveTasks(cmd.Context(), tasks)
			}

			out := make([]map[string]any, 0, len(tasks))
			for _, t := range tasks {
				if status != "" && string(t.Status) != status {
					continue
				}
				f := discussion.FromMessages(t.Messages)
				out = append(out, map[string]any{
					"id":       t.ID,
					"title":    t.Title,
					"status":   t.Status,
					"messages": f.Size(),
				})
			}
			return writeOut(cmd, app, map[string]any{
				"data": out,
				"meta": map[string]any{"total": len(out)},
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending|completed)")
	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task with an empty discussion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := client.CreateTask(cmd.Context(), args[0], model.TaskStatusPending)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task and its discussion tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			task, err := fetchTask(cmd.Context(), client, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			f := discussion.FromMessages(task.Messages)
			threads := make([]map[string]any, 0)
			for _, m := range f.TopLevel() {
				threads = append(threads, map[string]any{
					"id":      m.ID,
					"sender":  m.Sender,
					"replies": f.CountDescendants(m.ID),
				})
			}
			return writeOut(cmd, app, map[string]any{
				"data": task,
				"meta": map[string]any{
					"messages": f.Size(),
					"threads":  threads,
				},
			})
		},
	}
	return cmd
}

func newTasksToggleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Flip a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctrl := discussion.NewController(client, client, nil)
			ctrl.SetSession(sess.User)

			task, err := fetchTask(cmd.Context(), client, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ctrl.SelectTask(task)
			if err := ctrl.ToggleStatus(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": ctrl.Task()})
		},
	}
	return cmd
}

func newTasksSendCmd(app *App) *cobra.Command {
	var replyTo string

	cmd := &cobra.Command{
		Use:   "send <task-id> <text>",
		Short: "Post a message (or reply) to a task discussion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()

			dispatcher := discussion.NewDispatcher(mailer(sess))
			ctrl := discussion.NewController(client, client, dispatcher)
			ctrl.SetSession(sess.User)
			// Degraded directory just means no notifications; the send
			// itself must still work with the persisted session user.
			_ = ctrl.RefreshDirectory(ctx)

			task, err := fetchTask(ctx, client, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ctrl.SelectTask(task)

			if replyTo != "" {
				if err := ctrl.StartReply(replyTo); err != nil {
					return writeErr(cmd, err)
				}
			}
			if err := ctrl.SendMessage(ctx, args[1]); err != nil {
				return writeErr(cmd, err)
			}
			dispatcher.Drain(ctx)

			if cs, cerr := cacheStore(); cerr == nil {
				if tasks, terr := client.Tasks(ctx); terr == nil {
					_ = cs.SaveTasks(ctx, tasks)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": ctrl.Task()})
		},
	}
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "Message id to reply to")
	return cmd
}

func fetchTask(ctx context.Context, client *api.Client, id string) (model.Task, error) {
	tasks, err := client.Tasks(ctx)
	if err != nil {
		return model.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Task{}, errNotFound("task", id)
}

func mailer(sess session.Session) *api.MailClient {
	return api.NewMailClient(sess.Mail.ServiceID, sess.Mail.TemplateID, sess.Mail.PublicKey)
}
