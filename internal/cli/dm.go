package cli

import (
	"github.com/spf13/cobra"
)

func newDMCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dm",
		Short: "Direct message commands",
	}
	cmd.AddCommand(newDMConversationsCmd(app))
	cmd.AddCommand(newDMListCmd(app))
	cmd.AddCommand(newDMSendCmd(app))
	return cmd
}

func newDMConversationsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List users you have exchanged messages with",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			convs, err := client.Conversations(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": convs,
				"meta": map[string]any{"total": len(convs)},
			})
		},
	}
}

func newDMListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <user-id>",
		Short: "Show the message history with one user, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			msgs, err := client.ConversationWith(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": msgs,
				"meta": map[string]any{"total": len(msgs)},
			})
		},
	}
}

func newDMSendCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "send <user-id> <text>",
		Short: "Send a direct message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			msg, err := client.SendDirectMessage(cmd.Context(), args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": msg})
		},
	}
}
