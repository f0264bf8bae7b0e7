package cli

import "fmt"

type errNotLoggedIn struct{}

func (errNotLoggedIn) Error() string {
	return "not logged in: run `huddle login` first"
}

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}
