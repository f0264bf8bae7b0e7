package cli

import (
	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	cmd.AddCommand(newProjectsAddMemberCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects you are a member of",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			projects, err := client.Projects(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": projects,
				"meta": map[string]any{"total": len(projects)},
			})
		},
	}
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project with you as sole member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id, err := client.CreateProject(cmd.Context(), args[0], description)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"id": id, "title": args[0]}})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	return cmd
}

func newProjectsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with members and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := client.Project(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": p})
		},
	}
}

func newProjectsAddMemberCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "add-member <project-id>",
		Short: "Add a member to a project by email (creator only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m, err := client.AddMember(cmd.Context(), args[0], email)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": m})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email of the user to add")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
