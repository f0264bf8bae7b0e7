package discussion

import (
	"context"
	"log"

	"huddle-cli/internal/model"
)

// Mailer is the outbound mail collaborator. Send failures are the
// recipient's problem only; the dispatcher never propagates them.
type Mailer interface {
	SendNotification(ctx context.Context, n Notification) error
}

// Notification is one outbound mail payload.
type Notification struct {
	SenderName     string
	ReceiverName   string
	RecipientEmail string
	Message        string
	TaskTitle      string
}

// Event is emitted by the controller after a message has been applied
// locally. It is self-contained so the dispatcher can run detached from
// the controller's state.
type Event struct {
	Text        string
	TaskTitle   string
	Sender      model.User
	Users       []model.User
	ReplyTarget *model.Message
}

// Dispatcher resolves notification recipients from mentions plus the reply
// target and emits one mail per recipient.
type Dispatcher struct {
	mailer Mailer
	logf   func(format string, args ...any)

	events chan Event
}

func NewDispatcher(mailer Mailer) *Dispatcher {
	return &Dispatcher{
		mailer: mailer,
		logf:   log.Printf,
		events: make(chan Event, 16),
	}
}

// Enqueue hands an event to the dispatcher without blocking the send path.
// When the queue is full the event is dropped and logged; notification
// delivery is best-effort by contract.
func (d *Dispatcher) Enqueue(evt Event) {
	select {
	case d.events <- evt:
	default:
		d.logf("notify: queue full, dropping event for task %q", evt.TaskTitle)
	}
}

// Run consumes queued events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-d.events:
			d.Dispatch(ctx, evt)
		}
	}
}

// Drain dispatches everything currently queued and returns. One-shot
// callers (CLI commands) use this instead of Run.
func (d *Dispatcher) Drain(ctx context.Context) {
	for {
		select {
		case evt := <-d.events:
			d.Dispatch(ctx, evt)
		default:
			return
		}
	}
}

// Dispatch resolves recipients for one event and sends their mails.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) {
	recipients := ResolveRecipients(evt.Users, evt.Sender, ExtractMentions(evt.Text), evt.ReplyTarget)
	for _, r := range recipients {
		err := d.mailer.SendNotification(ctx, Notification{
			SenderName:     evt.Sender.Name,
			ReceiverName:   r.Name,
			RecipientEmail: r.Email,
			Message:        evt.Text,
			TaskTitle:      evt.TaskTitle,
		})
		if err != nil {
			d.logf("notify: send to %s failed: %v", r.Email, err)
		}
	}
}

// ResolveRecipients returns the users to notify for a message: users whose
// username was @mentioned, plus the author of the message being replied to
// (matched by display name). The sender and users without an email address
// are excluded; a user reachable by both paths is counted once.
func ResolveRecipients(users []model.User, current model.User, mentioned []string, replyTarget *model.Message) []model.User {
	seen := map[string]bool{}
	var out []model.User

	add := func(u model.User) {
		if u.Email == "" || u.ID == current.ID || seen[u.ID] {
			return
		}
		seen[u.ID] = true
		out = append(out, u)
	}

	for _, username := range mentioned {
		for _, u := range users {
			if u.Username != "" && u.Username == username {
				add(u)
				break
			}
		}
	}

	if replyTarget != nil {
		for _, u := range users {
			if u.Name == replyTarget.Sender {
				add(u)
				break
			}
		}
	}
	return out
}
