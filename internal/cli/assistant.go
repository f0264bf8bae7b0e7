package cli

import (
	"github.com/charmbracelet/glamour"

	"huddle-cli/internal/model"

	"github.com/spf13/cobra"
)

func newAssistantCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "AI assistant commands",
	}
	cmd.AddCommand(newAssistantAskCmd(app))
	return cmd
}

func newAssistantAskCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Ask the workspace assistant a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			turn, err := client.Ask(cmd.Context(), []model.ChatTurn{
				{Role: model.ChatRoleUser, Message: args[0]},
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if raw {
				return writeOut(cmd, app, map[string]any{"data": turn})
			}
			rendered, err := glamour.Render(turn.Message, "auto")
			if err != nil {
				return writeErr(cmd, err)
			}
			_, err = cmd.OutOrStdout().Write([]byte(rendered))
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Emit the reply as JSON instead of rendering")
	return cmd
}
