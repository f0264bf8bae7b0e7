package cli

import (
	"github.com/charmbracelet/glamour"

	"github.com/spf13/cobra"
)

func newNotesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Project note commands",
	}
	cmd.AddCommand(newNotesAddCmd(app))
	cmd.AddCommand(newNotesEditCmd(app))
	cmd.AddCommand(newNotesDeleteCmd(app))
	cmd.AddCommand(newNotesShowCmd(app))
	return cmd
}

func newNotesAddCmd(app *App) *cobra.Command {
	var title, body string

	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Attach a note to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id, err := client.AddNote(cmd.Context(), args[0], title, body)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"note_id": id}})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Note title")
	cmd.Flags().StringVar(&body, "body", "", "Note body (markdown)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newNotesEditCmd(app *App) *cobra.Command {
	var title, body string

	cmd := &cobra.Command{
		Use:   "edit <project-id> <note-id>",
		Short: "Replace a note's title and body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := client.UpdateNote(cmd.Context(), args[0], args[1], title, body); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"message": "note updated"}})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Note title")
	cmd.Flags().StringVar(&body, "body", "", "Note body (markdown)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newNotesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id> <note-id>",
		Short: "Delete a note from a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := client.DeleteNote(cmd.Context(), args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"message": "note deleted"}})
		},
	}
}

func newNotesShowCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <project-id> <note-id>",
		Short: "Render a note's markdown body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := client.Project(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			for _, n := range p.Notes {
				if n.ID != args[1] {
					continue
				}
				if raw {
					return writeOut(cmd, app, map[string]any{"data": n})
				}
				rendered, err := glamour.Render("# "+n.Title+"\n\n"+n.Body, "auto")
				if err != nil {
					return writeErr(cmd, err)
				}
				_, err = cmd.OutOrStdout().Write([]byte(rendered))
				return err
			}
			return writeErr(cmd, errNotFound("note", args[1]))
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Emit the note as JSON instead of rendering")
	return cmd
}
