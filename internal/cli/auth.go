package cli

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"huddle-cli/internal/api"
	"huddle-cli/internal/session"

	"github.com/spf13/cobra"
)

func newRegisterCmd(app *App) *cobra.Command {
	var name, email, username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if password == "" {
				password, err = promptPassword(cmd, "Password: ")
				if err != nil {
					return writeErr(cmd, err)
				}
			}
			err = client.Register(cmd.Context(), api.RegisterRequest{
				Name:     name,
				Email:    email,
				Username: username,
				Password: password,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"message": "registered", "username": username}})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&username, "username", "", "Mention handle (unique)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := connect(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if username == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Username: ")
				if _, err := fmt.Fscanln(cmd.InOrStdin(), &username); err != nil {
					return writeErr(cmd, fmt.Errorf("read username: %w", err))
				}
			}
			if password == "" {
				password, err = promptPassword(cmd, "Password: ")
				if err != nil {
					return writeErr(cmd, err)
				}
			}

			token, err := client.Login(cmd.Context(), username, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			me, err := client.CurrentUser(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			// /me has no username; remember the one we logged in with.
			me.Username = username

			sess.ServerURL = app.serverURL(sess)
			sess.Token = token
			sess.User = me
			if err := session.Save(sess); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": me})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account username")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.Clear(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"message": "logged out"}})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active session user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			me, err := client.CurrentUser(cmd.Context())
			if err != nil {
				// Offline fallback: the persisted copy.
				return writeOut(cmd, app, map[string]any{
					"data": sess.User,
					"meta": map[string]any{"stale": true},
				})
			}
			if me.Username == "" {
				me.Username = sess.User.Username
			}
			return writeOut(cmd, app, map[string]any{"data": me})
		},
	}
}

func newUsersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List workspace users",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connectAuthed(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			users, err := client.Users(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if cs, cerr := cacheStore(); cerr == nil {
				_ = cs.SaveUsers(cmd.Context(), users)
			}
			return writeOut(cmd, app, map[string]any{
				"data": users,
				"meta": map[string]any{"total": len(users)},
			})
		},
	}
}

func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	// Non-interactive stdin (tests, pipes).
	var pw string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &pw); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(pw), nil
}
