package cli

import (
	"fmt"
	"os"
	"strings"

	"huddle-cli/internal/api"
	"huddle-cli/internal/cache"
	"huddle-cli/internal/format"
	"huddle-cli/internal/session"
	"huddle-cli/internal/tui"

	"github.com/spf13/cobra"
)

// App carries flag state shared by every command.
type App struct {
	ServerURL  string
	PrettyJSON bool
}

const defaultServerURL = "http://localhost:8000"

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "huddle",
		Short:        "Huddle workspace client (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive task discussion TUI
  huddle

  # Scriptable commands
  huddle login
  huddle tasks list
  huddle tasks send <task-id> "looks good @alice"

  # Project plumbing
  huddle projects list
  huddle dm send <user-id> "lunch?"
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.ServerURL, "server", "", "Backend base URL (default: session value, then "+defaultServerURL+")")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newNotesCmd(app))
	cmd.AddCommand(newDMCmd(app))
	cmd.AddCommand(newAssistantCmd(app))

	return cmd
}

// serverURL resolves the backend base URL: flag, then env, then the
// persisted session, then the local default.
func (app *App) serverURL(s session.Session) string {
	if app.ServerURL != "" {
		return app.ServerURL
	}
	if env := os.Getenv("HUDDLE_API"); env != "" {
		return env
	}
	if s.ServerURL != "" {
		return s.ServerURL
	}
	return defaultServerURL
}

// connect loads the persisted session and returns a client armed with its
// token. Commands that require auth should check sess.LoggedIn first and
// return errNotLoggedIn for a friendly message.
func connect(app *App) (*api.Client, session.Session, error) {
	sess, err := session.Load()
	if err != nil {
		return nil, session.Session{}, err
	}
	return api.NewClient(app.serverURL(sess), sess.Token), sess, nil
}

func connectAuthed(app *App) (*api.Client, session.Session, error) {
	client, sess, err := connect(app)
	if err != nil {
		return nil, session.Session{}, err
	}
	if !sess.LoggedIn() {
		return nil, session.Session{}, errNotLoggedIn{}
	}
	return client, sess, nil
}

// cacheStore returns the snapshot cache co-located with the session file.
func cacheStore() (cache.Store, error) {
	dir, err := session.Dir()
	if err != nil {
		return cache.Store{}, err
	}
	return cache.Store{Dir: dir}, nil
}

func runTUI(app *App) error {
	client, sess, err := connectAuthed(app)
	if err != nil {
		return err
	}
	cs, err := cacheStore()
	if err != nil {
		return err
	}
	return tui.Run(client, sess, cs)
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.WriteJSON(cmd.OutOrStdout(), v, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
