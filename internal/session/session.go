package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"huddle-cli/internal/model"
)

// Session is the persisted login state: which server, which token, who we
// are. Stored as JSON under the user config dir, one file per machine.
type Session struct {
	ServerURL string     `json:"serverUrl"`
	Token     string     `json:"token,omitempty"`
	User      model.User `json:"user,omitempty"`

	// Mail carries the notification sender settings; empty means
	// notifications are disabled on this machine.
	Mail MailSettings `json:"mail,omitempty"`
}

type MailSettings struct {
	ServiceID  string `json:"serviceId,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
	PublicKey  string `json:"publicKey,omitempty"`
}

// LoggedIn reports whether a token is present. The token may still be
// expired; callers find that out from the first 401.
func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// Dir returns the config directory, honoring HUDDLE_CONFIG_DIR for tests
// and unusual setups.
func Dir() (string, error) {
	if dir := os.Getenv("HUDDLE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "huddle"), nil
}

func path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// Load reads the persisted session. A missing file is not an error: it
// returns a zero session so first-run commands can prompt for login.
func Load() (Session, error) {
	p, err := path()
	if err != nil {
		return Session{}, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("parse %s: %w", p, err)
	}
	return s, nil
}

// Save writes the session atomically (write temp, rename).
func Save(s Session) error {
	p, err := path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Clear removes the persisted session (logout).
func Clear() error {
	p, err := path()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
